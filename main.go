package KivDB

import (
	"github.com/nickyhof/KivDB/core"
	"github.com/nickyhof/KivDB/db"
	"github.com/nickyhof/KivDB/ps"
)

type Instance struct {
	Persistence *ps.Persistence
}

func Open(persistence *ps.Persistence) *Instance {
	return &Instance{
		Persistence: persistence,
	}
}

// OpenFile opens the store at path, keeping checkpoint history next to it
// when history is true.
func OpenFile(path string, history bool) (*Instance, error) {
	persistence, err := ps.NewFilePersistence(path, history)
	if err != nil {
		return nil, err
	}
	return Open(persistence), nil
}

// OpenMemory opens an ephemeral store.
func OpenMemory() (*Instance, error) {
	persistence, err := ps.NewMemoryPersistence()
	if err != nil {
		return nil, err
	}
	return Open(persistence), nil
}

func (instance *Instance) Engine(identity core.Identity, opts ...db.Option) *db.Engine {
	return db.NewEngine(instance.Persistence, identity, opts...)
}

func (instance *Instance) Close() error {
	instance.Persistence.Lock()
	defer instance.Persistence.Unlock()

	return instance.Persistence.Close()
}
