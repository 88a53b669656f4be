package ps

import (
	"errors"
	"fmt"
	"time"

	"github.com/go-git/go-git/v6"
	"github.com/go-git/go-git/v6/plumbing"
	"github.com/go-git/go-git/v6/plumbing/object"
	"github.com/nickyhof/KivDB/core"
)

// Transaction is one checkpoint of the data file in the history repository.
type Transaction struct {
	Id      string
	When    time.Time
	Author  string // "Name <email>" format
	Message string
}

func (transaction Transaction) String() string {
	return fmt.Sprintf("Transaction{Id: %s, When: %s, Author: %s}", transaction.Id, transaction.When, transaction.Author)
}

func (persistence *Persistence) ensureHistory() error {
	if err := persistence.ensureInitialized(); err != nil {
		return err
	}
	if persistence.repo == nil {
		return ErrHistoryDisabled
	}
	return nil
}

// Checkpoint commits the current data file to the history repository.
func (persistence *Persistence) Checkpoint(identity core.Identity, message string) (Transaction, error) {
	if err := persistence.ensureHistory(); err != nil {
		return Transaction{}, err
	}

	wt, err := persistence.repo.Worktree()
	if err != nil {
		return Transaction{}, fmt.Errorf("failed to get worktree: %w", err)
	}

	// Only the data file is staged; the rest of the directory is not walked
	err = wt.AddWithOptions(&git.AddOptions{Path: persistence.name, SkipStatus: true})
	if err != nil {
		return Transaction{}, fmt.Errorf("failed to stage data file: %w", err)
	}

	if message == "" {
		message = "Checkpoint"
	}

	hash, err := wt.Commit(message, &git.CommitOptions{
		Author: &object.Signature{
			Name:  identity.Name,
			Email: identity.Email,
			When:  time.Now(),
		},
		AllowEmptyCommits: true,
	})
	if err != nil {
		return Transaction{}, fmt.Errorf("failed to commit checkpoint: %w", err)
	}

	commit, err := persistence.repo.CommitObject(hash)
	if err != nil {
		return Transaction{}, err
	}

	return transactionFromCommit(commit), nil
}

func (persistence *Persistence) LatestTransaction() Transaction {
	if persistence.ensureHistory() != nil {
		return Transaction{}
	}

	headRef, err := persistence.repo.Head()
	if err != nil || headRef == nil {
		// No commits yet
		return Transaction{}
	}

	commit, err := persistence.repo.CommitObject(headRef.Hash())
	if err != nil {
		return Transaction{}
	}

	return transactionFromCommit(commit)
}

// Transactions lists checkpoints, newest first.
func (persistence *Persistence) Transactions() ([]Transaction, error) {
	if err := persistence.ensureHistory(); err != nil {
		return nil, err
	}

	if _, err := persistence.repo.Head(); err != nil {
		if errors.Is(err, plumbing.ErrReferenceNotFound) {
			return nil, nil
		}
		return nil, err
	}

	cIter, err := persistence.repo.Log(&git.LogOptions{})
	if err != nil {
		return nil, err
	}

	var transactions []Transaction
	err = cIter.ForEach(func(c *object.Commit) error {
		transactions = append(transactions, transactionFromCommit(c))
		return nil
	})

	return transactions, err
}

func transactionFromCommit(commit *object.Commit) Transaction {
	author := ""
	if commit.Author.Name != "" || commit.Author.Email != "" {
		author = fmt.Sprintf("%s <%s>", commit.Author.Name, commit.Author.Email)
	}

	return Transaction{
		Id:      commit.Hash.String(),
		When:    commit.Committer.When,
		Author:  author,
		Message: commit.Message,
	}
}
