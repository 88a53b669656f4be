package ps

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
)

// Export writes the complete data file, header included, to w.
func (persistence *Persistence) Export(w io.Writer) (int64, error) {
	if err := persistence.ensureInitialized(); err != nil {
		return 0, err
	}

	if _, err := persistence.file.Seek(0, io.SeekStart); err != nil {
		return 0, err
	}

	return io.Copy(w, persistence.file)
}

// Import replaces the data file with the image read from r. The image is
// validated first; on error the current file is left untouched.
func (persistence *Persistence) Import(r io.Reader) error {
	if err := persistence.ensureInitialized(); err != nil {
		return err
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("failed to read data file image: %w", err)
	}

	return persistence.replace(data)
}

// Validate checks that data is a complete data file image: header, version
// and every record.
func Validate(data []byte) error {
	if len(data) < headerSize || !bytes.Equal(data[:len(MagicBytes)], MagicBytes[:]) {
		return &CorruptionError{Offset: 0, Reason: "missing or invalid header"}
	}
	if version := binary.BigEndian.Uint16(data[len(MagicBytes):headerSize]); version != CurrentVersion {
		return fmt.Errorf("%w: %d", ErrUnsupportedVersion, version)
	}

	reader := newEntryReader(bytes.NewReader(data[headerSize:]), headerSize, int64(len(data)))
	for {
		_, err := reader.next(func(string) bool { return true })
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
	}
}

func (persistence *Persistence) replace(data []byte) error {
	if err := Validate(data); err != nil {
		return err
	}

	if err := persistence.file.Truncate(0); err != nil {
		return fmt.Errorf("failed to truncate data file: %w", err)
	}
	if _, err := persistence.file.Seek(0, io.SeekStart); err != nil {
		return err
	}
	if _, err := persistence.file.Write(data); err != nil {
		return fmt.Errorf("failed to write data file: %w", err)
	}

	return nil
}
