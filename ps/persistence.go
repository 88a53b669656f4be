package ps

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/go-git/go-billy/v6"
	"github.com/go-git/go-billy/v6/memfs"
	"github.com/go-git/go-billy/v6/osfs"
	"github.com/go-git/go-git/v6"
	"github.com/go-git/go-git/v6/plumbing/cache"
	"github.com/go-git/go-git/v6/storage/filesystem"
	"github.com/go-git/go-git/v6/storage/memory"
)

const (
	// DefaultFileName is the data file name used by NewMemoryPersistence.
	DefaultFileName = "data.kiv"

	CurrentVersion uint16 = 0

	// HistorySuffix is appended to the data file name to form the directory
	// holding its history repository.
	HistorySuffix = ".history"

	headerSize = 8
)

// MagicBytes identifies a KivDB data file.
var MagicBytes = [6]byte{0, 'h', 'i', 'k', 'i', 'v'}

var (
	ErrNotInitialized     = errors.New("persistence layer not initialized")
	ErrClosed             = errors.New("persistence layer closed")
	ErrUnsupportedVersion = errors.New("unsupported data file version")
	ErrHistoryDisabled    = errors.New("history is not enabled for this store")
	ErrLocked             = errors.New("data file is locked by another process")
)

// Persistence owns the single open handle of a KivDB data file.
//
// Every method seeks the shared handle, so no two calls may overlap. Callers
// that share a Persistence between goroutines must bracket each logical
// operation (including check-then-act sequences such as get-then-update)
// with Lock and Unlock. The db.Engine does this for every statement.
type Persistence struct {
	fs   billy.Filesystem
	name string
	file billy.File
	repo *git.Repository
	mu   sync.Mutex
}

// IsInitialized returns true if the persistence layer has an open data file
func (p *Persistence) IsInitialized() bool {
	return p != nil && p.file != nil
}

// ensureInitialized checks if the persistence layer is usable and returns an error if not
func (p *Persistence) ensureInitialized() error {
	if p == nil || p.fs == nil {
		return ErrNotInitialized
	}
	if p.file == nil {
		return ErrClosed
	}
	return nil
}

// Lock acquires exclusive access to the data file handle
func (p *Persistence) Lock() {
	p.mu.Lock()
}

// Unlock releases exclusive access
func (p *Persistence) Unlock() {
	p.mu.Unlock()
}

// Name returns the data file name relative to the filesystem root.
func (p *Persistence) Name() string {
	return p.name
}

// HistoryEnabled reports whether checkpoints can be recorded.
func (p *Persistence) HistoryEnabled() bool {
	return p.repo != nil
}

// NewMemoryPersistence opens a store on an in-memory filesystem with history
// enabled.
func NewMemoryPersistence() (*Persistence, error) {
	wt := memfs.New()
	storer := memory.NewStorage()

	repo, err := git.Init(storer, git.WithWorkTree(wt))
	if err != nil {
		return nil, err
	}

	return open(wt, DefaultFileName, repo)
}

// NewFilePersistence opens (or creates) the data file at path. When history
// is true a private Git repository is kept in <path>.history for
// checkpoints. A .git directory next to the file is never touched.
func NewFilePersistence(path string, history bool) (*Persistence, error) {
	baseDir := filepath.Dir(path)
	name := filepath.Base(path)

	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, err
	}

	wt := osfs.New(baseDir)
	if !history {
		return open(wt, name, nil)
	}

	fs, err := wt.Chroot(name + HistorySuffix)
	if err != nil {
		return nil, err
	}

	storer := filesystem.NewStorageWithOptions(
		fs,
		cache.NewObjectLRUDefault(),
		filesystem.Options{ExclusiveAccess: true})

	var repo *git.Repository
	if _, statErr := os.Stat(fs.Root()); statErr != nil {
		repo, err = git.Init(storer, git.WithWorkTree(wt))
	} else {
		repo, err = git.Open(storer, wt)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open history repository: %w", err)
	}

	return open(wt, name, repo)
}

// Open opens the data file name on fs without history.
func Open(fs billy.Filesystem, name string) (*Persistence, error) {
	return open(fs, name, nil)
}

func open(fs billy.Filesystem, name string, repo *git.Repository) (*Persistence, error) {
	file, err := fs.OpenFile(name, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open data file %s: %w", name, err)
	}

	if err := lockFile(file); err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to lock data file %s: %w", name, err)
	}

	p := &Persistence{
		fs:   fs,
		name: name,
		file: file,
		repo: repo,
	}

	if err := p.prepareFile(); err != nil {
		p.Close()
		return nil, err
	}

	return p, nil
}

// prepareFile writes the header to an empty file and re-initializes a file
// whose magic bytes do not match. Existing content is discarded in that case.
func (p *Persistence) prepareFile() error {
	size, err := p.file.Seek(0, io.SeekEnd)
	if err != nil {
		return fmt.Errorf("failed to stat data file: %w", err)
	}

	if size == 0 {
		return p.initializeFile()
	}

	header := make([]byte, headerSize)
	if _, err := p.file.Seek(0, io.SeekStart); err != nil {
		return err
	}
	n, err := io.ReadFull(p.file, header)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) {
		return fmt.Errorf("failed to read data file header: %w", err)
	}

	if n < headerSize || !bytes.Equal(header[:len(MagicBytes)], MagicBytes[:]) {
		if err := p.file.Truncate(0); err != nil {
			return fmt.Errorf("failed to truncate invalid data file: %w", err)
		}
		return p.initializeFile()
	}

	if version := binary.BigEndian.Uint16(header[len(MagicBytes):]); version != CurrentVersion {
		return fmt.Errorf("%w: %d", ErrUnsupportedVersion, version)
	}

	return nil
}

func (p *Persistence) initializeFile() error {
	if _, err := p.file.Seek(0, io.SeekStart); err != nil {
		return err
	}
	if _, err := p.file.Write(fileHeader()); err != nil {
		return fmt.Errorf("failed to write data file header: %w", err)
	}
	return nil
}

func fileHeader() []byte {
	header := make([]byte, 0, headerSize)
	header = append(header, MagicBytes[:]...)
	return binary.BigEndian.AppendUint16(header, CurrentVersion)
}

// Size returns the data file size in bytes, header included.
func (p *Persistence) Size() (int64, error) {
	if err := p.ensureInitialized(); err != nil {
		return 0, err
	}
	return p.file.Seek(0, io.SeekEnd)
}

// Close releases the data file. Further calls fail with ErrClosed.
func (p *Persistence) Close() error {
	if p == nil || p.file == nil {
		return nil
	}
	file := p.file
	p.file = nil

	var unlockErr error
	if locker, ok := file.(billy.Locker); ok {
		unlockErr = locker.Unlock()
	}
	if err := file.Close(); err != nil {
		return err
	}
	return unlockErr
}
