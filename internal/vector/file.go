package vector

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
)

const (
	fileMagic   = "PSGV"
	fileVersion = uint32(1)
	headerSize  = 16
)

// ErrCorruptFile is returned when a vector file is truncated or has a bad header.
var ErrCorruptFile = errors.New("corrupt vector file")

// Header describes a vector file.
type Header struct {
	Version    uint32
	Dimensions int
	Count      int
}

// WriteFile writes vectors in the binary format: magic "PSGV", then
// little-endian uint32 version, dimension and count, then count*dimension
// float32 values in order.
func WriteFile(path string, dimensions int, vectors [][]float32) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create index dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create vector file: %w", err)
	}
	w := bufio.NewWriter(f)
	if err := writeVectors(w, dimensions, vectors); err != nil {
		f.Close()
		return err
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return fmt.Errorf("flush vector file: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return fmt.Errorf("sync vector file: %w", err)
	}
	return f.Close()
}

func writeVectors(w io.Writer, dimensions int, vectors [][]float32) error {
	header := make([]byte, headerSize)
	copy(header, fileMagic)
	binary.LittleEndian.PutUint32(header[4:], fileVersion)
	binary.LittleEndian.PutUint32(header[8:], uint32(dimensions))
	binary.LittleEndian.PutUint32(header[12:], uint32(len(vectors)))
	if _, err := w.Write(header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for i, vec := range vectors {
		if len(vec) != dimensions {
			return fmt.Errorf("%w: vector %d has %d, expected %d", ErrDimensionMismatch, i, len(vec), dimensions)
		}
		if _, err := w.Write(float32SliceToBytes(vec)); err != nil {
			return fmt.Errorf("write vector %d: %w", i, err)
		}
	}
	return nil
}

// ReadHeader reads only the header of a vector file.
func ReadHeader(path string) (Header, error) {
	f, err := os.Open(path)
	if err != nil {
		return Header{}, err
	}
	defer f.Close()
	return readHeader(f)
}

func readHeader(r io.Reader) (Header, error) {
	buf := make([]byte, headerSize)
	if _, err := io.ReadFull(r, buf); err != nil {
		return Header{}, fmt.Errorf("%w: read header: %v", ErrCorruptFile, err)
	}
	if string(buf[:4]) != fileMagic {
		return Header{}, fmt.Errorf("%w: bad magic %q", ErrCorruptFile, buf[:4])
	}
	h := Header{
		Version:    binary.LittleEndian.Uint32(buf[4:]),
		Dimensions: int(binary.LittleEndian.Uint32(buf[8:])),
		Count:      int(binary.LittleEndian.Uint32(buf[12:])),
	}
	if h.Version != fileVersion {
		return Header{}, fmt.Errorf("%w: unsupported version %d", ErrCorruptFile, h.Version)
	}
	if h.Dimensions <= 0 {
		return Header{}, fmt.Errorf("%w: dimension %d", ErrCorruptFile, h.Dimensions)
	}
	return h, nil
}

// ReadFile reads a whole vector file. The file must hold exactly the number of
// vectors its header declares.
func ReadFile(path string) (Header, [][]float32, error) {
	f, err := os.Open(path)
	if err != nil {
		return Header{}, nil, err
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return Header{}, nil, err
	}
	r := bufio.NewReader(f)
	h, err := readHeader(r)
	if err != nil {
		return Header{}, nil, err
	}
	if err := checkSize(h, info.Size()); err != nil {
		return Header{}, nil, err
	}
	vectors := make([][]float32, 0, h.Count)
	buf := make([]byte, h.Dimensions*4)
	for i := 0; i < h.Count; i++ {
		if _, err := io.ReadFull(r, buf); err != nil {
			return Header{}, nil, fmt.Errorf("%w: vector %d of %d: %v", ErrCorruptFile, i, h.Count, err)
		}
		vectors = append(vectors, bytesToFloat32Slice(buf))
	}
	if _, err := r.ReadByte(); err != io.EOF {
		return Header{}, nil, fmt.Errorf("%w: trailing data after %d vectors", ErrCorruptFile, h.Count)
	}
	return h, vectors, nil
}

// checkSize rejects a header whose declared payload does not match the file
// size, before anything is allocated from it.
func checkSize(h Header, size int64) error {
	// Both factors fit in 32 bits, so the product fits in 64.
	payload := uint64(h.Count) * uint64(h.Dimensions)
	if payload > (math.MaxInt64-headerSize)/4 {
		return fmt.Errorf("%w: header declares %d vectors of %d dimensions", ErrCorruptFile, h.Count, h.Dimensions)
	}
	if want := headerSize + int64(payload)*4; size != want {
		return fmt.Errorf("%w: size %d, header declares %d bytes", ErrCorruptFile, size, want)
	}
	return nil
}

func float32SliceToBytes(s []float32) []byte {
	const size = 4
	out := make([]byte, len(s)*size)
	for i, v := range s {
		binary.LittleEndian.PutUint32(out[i*size:(i+1)*size], math.Float32bits(v))
	}
	return out
}

func bytesToFloat32Slice(b []byte) []float32 {
	const size = 4
	out := make([]float32, len(b)/size)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*size : (i+1)*size]))
	}
	return out
}
