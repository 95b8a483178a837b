package neural

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
)

// bytesPerParam is the width of one serialized parameter (little-endian float64).
const bytesPerParam = 8

// EncodedSize returns the byte length of a serialized network of the given shape.
func EncodedSize(shape []int) (int64, error) {
	if err := ValidateShape(shape); err != nil {
		return 0, err
	}
	var n int64
	for i := 0; i < len(shape)-1; i++ {
		n += int64(shape[i+1]) * int64(shape[i]+1)
	}
	return n * bytesPerParam, nil
}

// MarshalBinary implements encoding.BinaryMarshaler. The encoding is a bare
// stream of little-endian float64 values with no header; see Params for order.
func (nn *Network) MarshalBinary() ([]byte, error) {
	params := nn.Params()
	buf := make([]byte, len(params)*bytesPerParam)
	for i, v := range params {
		binary.LittleEndian.PutUint64(buf[i*bytesPerParam:], math.Float64bits(v))
	}
	return buf, nil
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler. The receiver must
// already have the shape the data was written with.
func (nn *Network) UnmarshalBinary(data []byte) error {
	if len(data) != nn.NumParams()*bytesPerParam {
		return fmt.Errorf("%w: got %d bytes, want %d", ErrShapeMismatch, len(data), nn.NumParams()*bytesPerParam)
	}
	params := make([]float64, nn.NumParams())
	for i := range params {
		params[i] = math.Float64frombits(binary.LittleEndian.Uint64(data[i*bytesPerParam:]))
	}
	return nn.SetParams(params)
}

// Decode builds a network of the given shape from MarshalBinary output.
func Decode(data []byte, shape []int) (*Network, error) {
	if err := ValidateShape(shape); err != nil {
		return nil, err
	}
	nn := zeroed(shape)
	if err := nn.UnmarshalBinary(data); err != nil {
		return nil, err
	}
	return nn, nil
}

// WriteTo implements io.WriterTo.
func (nn *Network) WriteTo(w io.Writer) (int64, error) {
	data, err := nn.MarshalBinary()
	if err != nil {
		return 0, err
	}
	n, err := w.Write(data)
	return int64(n), err
}

// Read consumes exactly one network of the given shape from r.
// Running out of data yields ErrShapeMismatch.
func Read(r io.Reader, shape []int) (*Network, error) {
	size, err := EncodedSize(shape)
	if err != nil {
		return nil, err
	}
	data := make([]byte, size)
	if _, err := io.ReadFull(r, data); err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return nil, fmt.Errorf("%w: need %d bytes: %v", ErrShapeMismatch, size, err)
		}
		return nil, fmt.Errorf("reading weights: %w", err)
	}
	return Decode(data, shape)
}

// Save writes the network to path. The data goes to a temporary file in the
// same directory which is synced and renamed over path, so readers never see
// a partial file.
func (nn *Network) Save(path string) (err error) {
	f, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("creating weight file: %w", err)
	}
	tmp := f.Name()
	defer func() {
		if err != nil {
			f.Close()
			os.Remove(tmp)
		}
	}()

	w := bufio.NewWriter(f)
	if _, err = nn.WriteTo(w); err != nil {
		return fmt.Errorf("writing weights: %w", err)
	}
	if err = w.Flush(); err != nil {
		return fmt.Errorf("flushing weights: %w", err)
	}
	if err = f.Sync(); err != nil {
		return fmt.Errorf("syncing weight file: %w", err)
	}
	if err = f.Close(); err != nil {
		return fmt.Errorf("closing weight file: %w", err)
	}
	if err = os.Rename(tmp, path); err != nil {
		return fmt.Errorf("renaming weight file: %w", err)
	}
	return nil
}

// Load reads a network of the given shape from path. The file size must
// match the shape exactly.
func Load(path string, shape []int) (*Network, error) {
	size, err := EncodedSize(shape)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening weight file: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat weight file: %w", err)
	}
	if info.Size() != size {
		return nil, fmt.Errorf("%w: %s is %d bytes, shape %v needs %d", ErrShapeMismatch, path, info.Size(), shape, size)
	}
	return Read(bufio.NewReader(f), shape)
}
