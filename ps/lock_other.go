//go:build !unix

package ps

import "github.com/go-git/go-billy/v6"

func lockFile(file billy.File) error {
	if locker, ok := file.(billy.Locker); ok {
		return locker.Lock()
	}
	return nil
}
