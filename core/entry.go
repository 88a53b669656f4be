package core

type EntryType uint8

const (
	DataEntryType EntryType = 0
)

func (entryType EntryType) String() string {
	switch entryType {
	case DataEntryType:
		return "data"
	default:
		return "unknown"
	}
}

// DataEntry is one key/value record as stored in the data file.
type DataEntry struct {
	Type  EntryType `json:"type"`
	Key   string    `json:"key"`
	Value string    `json:"value"`
}

func NewDataEntry(key, value string) DataEntry {
	return DataEntry{
		Type:  DataEntryType,
		Key:   key,
		Value: value,
	}
}
