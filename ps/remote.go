package ps

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-git/go-git/v6"
	"github.com/go-git/go-git/v6/config"
	"github.com/go-git/go-git/v6/plumbing/transport"
	"github.com/go-git/go-git/v6/plumbing/transport/http"
	"github.com/go-git/go-git/v6/plumbing/transport/ssh"
)

// DefaultRemote is used when no remote name is given.
const DefaultRemote = "origin"

// AuthType selects how a history remote authenticates.
type AuthType string

const (
	AuthTypeNone  AuthType = "none"
	AuthTypeToken AuthType = "token"
	AuthTypeSSH   AuthType = "ssh"
	AuthTypeBasic AuthType = "basic"
)

// RemoteAuth holds credentials for pushing history to a remote.
type RemoteAuth struct {
	Type       AuthType
	Token      string
	KeyPath    string // defaults to ~/.ssh/id_rsa
	Passphrase string
	Username   string
	Password   string
}

// Remote is a configured history mirror.
type Remote struct {
	Name string
	URLs []string
}

// method converts auth to a go-git transport auth method. A nil auth means
// anonymous access.
func (auth *RemoteAuth) method() (transport.AuthMethod, error) {
	if auth == nil {
		return nil, nil
	}

	switch auth.Type {
	case AuthTypeNone, "":
		return nil, nil
	case AuthTypeToken:
		return &http.BasicAuth{Username: "git", Password: auth.Token}, nil
	case AuthTypeBasic:
		return &http.BasicAuth{Username: auth.Username, Password: auth.Password}, nil
	case AuthTypeSSH:
		keyPath := auth.KeyPath
		if keyPath == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return nil, err
			}
			keyPath = filepath.Join(home, ".ssh", "id_rsa")
		}
		return ssh.NewPublicKeysFromFile("git", keyPath, auth.Passphrase)
	default:
		return nil, fmt.Errorf("unknown auth type: %s", auth.Type)
	}
}

// AddRemote registers a mirror for the checkpoint history.
func (persistence *Persistence) AddRemote(name, url string) error {
	if err := persistence.ensureHistory(); err != nil {
		return err
	}

	_, err := persistence.repo.CreateRemote(&config.RemoteConfig{
		Name: name,
		URLs: []string{url},
	})
	if err != nil {
		return fmt.Errorf("failed to add remote '%s': %w", name, err)
	}
	return nil
}

// ListRemotes returns every configured history mirror
func (persistence *Persistence) ListRemotes() ([]Remote, error) {
	if err := persistence.ensureHistory(); err != nil {
		return nil, err
	}

	remotes, err := persistence.repo.Remotes()
	if err != nil {
		return nil, fmt.Errorf("failed to list remotes: %w", err)
	}

	result := make([]Remote, 0, len(remotes))
	for _, r := range remotes {
		cfg := r.Config()
		result = append(result, Remote{Name: cfg.Name, URLs: cfg.URLs})
	}
	return result, nil
}

// RemoveRemote forgets the mirror called name
func (persistence *Persistence) RemoveRemote(name string) error {
	if err := persistence.ensureHistory(); err != nil {
		return err
	}

	if err := persistence.repo.DeleteRemote(name); err != nil {
		return fmt.Errorf("failed to remove remote '%s': %w", name, err)
	}
	return nil
}

// Push sends the current branch and every snapshot tag to the remote.
func (persistence *Persistence) Push(remoteName string, auth *RemoteAuth) error {
	if err := persistence.ensureHistory(); err != nil {
		return err
	}

	if remoteName == "" {
		remoteName = DefaultRemote
	}

	head, err := persistence.repo.Head()
	if err != nil {
		return fmt.Errorf("nothing to push, no checkpoint yet: %w", err)
	}
	branch := head.Name().String()

	authMethod, err := auth.method()
	if err != nil {
		return fmt.Errorf("failed to configure auth: %w", err)
	}

	err = persistence.repo.Push(&git.PushOptions{
		RemoteName: remoteName,
		RefSpecs: []config.RefSpec{
			config.RefSpec(branch + ":" + branch),
			config.RefSpec("refs/tags/*:refs/tags/*"),
		},
		Auth: authMethod,
	})
	if errors.Is(err, git.NoErrAlreadyUpToDate) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to push to '%s': %w", remoteName, err)
	}
	return nil
}

// Fetch downloads checkpoints and snapshot tags from the remote without
// touching the data file.
func (persistence *Persistence) Fetch(remoteName string, auth *RemoteAuth) error {
	if err := persistence.ensureHistory(); err != nil {
		return err
	}

	if remoteName == "" {
		remoteName = DefaultRemote
	}

	authMethod, err := auth.method()
	if err != nil {
		return fmt.Errorf("failed to configure auth: %w", err)
	}

	err = persistence.repo.Fetch(&git.FetchOptions{
		RemoteName: remoteName,
		RefSpecs: []config.RefSpec{
			config.RefSpec("+refs/heads/*:refs/remotes/" + remoteName + "/*"),
			"refs/tags/*:refs/tags/*",
		},
		Auth:       authMethod,
	})
	if errors.Is(err, git.NoErrAlreadyUpToDate) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to fetch from '%s': %w", remoteName, err)
	}
	return nil
}
