package ps

import (
	"fmt"

	"github.com/go-git/go-git/v6/plumbing"
)

// Snapshot tags a checkpoint with name. A nil asof tags the latest one.
func (persistence *Persistence) Snapshot(name string, asof *Transaction) error {
	if err := persistence.ensureHistory(); err != nil {
		return err
	}

	var hash plumbing.Hash
	if asof != nil {
		hash = plumbing.NewHash(asof.Id)
	} else {
		headRef, err := persistence.repo.Head()
		if err != nil {
			return fmt.Errorf("no checkpoint to snapshot: %w", err)
		}
		hash = headRef.Hash()
	}

	_, err := persistence.repo.CreateTag(name, hash, nil)
	return err
}

// Recover restores the data file to the checkpoint tagged name.
func (persistence *Persistence) Recover(name string) error {
	if err := persistence.ensureHistory(); err != nil {
		return err
	}

	ref, err := persistence.repo.Tag(name)
	if err != nil {
		return fmt.Errorf("snapshot %s not found: %w", name, err)
	}

	return persistence.restoreCommit(ref.Hash())
}

// Restore rewrites the data file with its content at asof.
func (persistence *Persistence) Restore(asof Transaction) error {
	if err := persistence.ensureHistory(); err != nil {
		return err
	}

	return persistence.restoreCommit(plumbing.NewHash(asof.Id))
}

func (persistence *Persistence) restoreCommit(hash plumbing.Hash) error {
	commit, err := persistence.repo.CommitObject(hash)
	if err != nil {
		return fmt.Errorf("checkpoint %s not found: %w", hash, err)
	}

	file, err := commit.File(persistence.name)
	if err != nil {
		return fmt.Errorf("checkpoint %s has no data file: %w", hash, err)
	}

	contents, err := file.Contents()
	if err != nil {
		return err
	}

	return persistence.replace([]byte(contents))
}
