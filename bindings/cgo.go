package main

/*
#include <stdlib.h>
*/
import "C"
import (
	"encoding/json"
	"sync"
	"unsafe"

	"github.com/nickyhof/KivDB"
	"github.com/nickyhof/KivDB/core"
	"github.com/nickyhof/KivDB/db"
)

// Handle represents an open store
type Handle struct {
	instance *KivDB.Instance
	engine   *db.Engine
}

var (
	handlesMu  sync.Mutex
	handles    = make(map[int]*Handle)
	nextHandle = 1
)

var bindingIdentity = core.Identity{
	Name:  "KivDB bindings",
	Email: "bindings@kivdb.local",
}

// Response mirrors the server protocol for consistency
type Response struct {
	Success bool            `json:"success"`
	Type    string          `json:"type"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *db.ErrorInfo   `json:"error,omitempty"`
}

func register(instance *KivDB.Instance) int {
	handlesMu.Lock()
	defer handlesMu.Unlock()

	handle := nextHandle
	nextHandle++
	handles[handle] = &Handle{
		instance: instance,
		engine:   instance.Engine(bindingIdentity),
	}
	return handle
}

func lookup(handle int) (*Handle, bool) {
	handlesMu.Lock()
	defer handlesMu.Unlock()

	h, ok := handles[handle]
	return h, ok
}

//export kivdb_open_memory
func kivdb_open_memory() C.int {
	instance, err := KivDB.OpenMemory()
	if err != nil {
		return -1
	}
	return C.int(register(instance))
}

//export kivdb_open_file
func kivdb_open_file(path *C.char, history C.int) C.int {
	instance, err := KivDB.OpenFile(C.GoString(path), history != 0)
	if err != nil {
		return -1
	}
	return C.int(register(instance))
}

//export kivdb_close
func kivdb_close(handle C.int) C.int {
	handlesMu.Lock()
	h, ok := handles[int(handle)]
	delete(handles, int(handle))
	handlesMu.Unlock()

	if !ok {
		return -1
	}
	if err := h.instance.Close(); err != nil {
		return -1
	}
	return 0
}

//export kivdb_execute
func kivdb_execute(handle C.int, statement *C.char) *C.char {
	return C.CString(string(execute(int(handle), C.GoString(statement))))
}

//export kivdb_free
func kivdb_free(ptr *C.char) {
	C.free(unsafe.Pointer(ptr))
}

// execute runs statement on the store behind handle and returns the JSON
// response.
func execute(handle int, statement string) []byte {
	h, ok := lookup(handle)
	if !ok {
		return encode(Response{
			Type:  "error",
			Error: &db.ErrorInfo{Kind: "handleError", Code: "invalidHandle"},
		})
	}

	result, err := h.engine.Execute(statement)
	if err != nil {
		info := db.DescribeError(err)
		return encode(Response{Type: "error", Error: &info})
	}

	data, err := json.Marshal(db.Envelope(result))
	if err != nil {
		return encode(Response{
			Type:  "error",
			Error: &db.ErrorInfo{Kind: "handleError", Code: "encoding", Detail: err.Error()},
		})
	}

	return encode(Response{
		Success: true,
		Type:    result.Type().String(),
		Result:  data,
	})
}

func encode(resp Response) []byte {
	data, _ := json.Marshal(resp)
	return data
}

func main() {}
