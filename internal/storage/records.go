package storage

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/san-kum/vortexsim/internal/filament"
)

// Binary step record layout (little endian):
//
//	header: magic "VXSM", version uint32
//	step:   time f64, step i64, nfil i32
//	fil:    offset 3×f64, n i32, flags u8, nodes 3n×f64,
//	        [velocity 3n×f64], [streamfunction 3n×f64]
const (
	recordMagic   = "VXSM"
	recordVersion = uint32(1)

	flagVelocity       = 1 << 0
	flagStreamfunction = 1 << 1
)

// FilamentRecord is one filament's persisted state. Velocity and
// Streamfunction are optional and aligned with Nodes.
type FilamentRecord struct {
	Offset         r3.Vec
	Nodes          []r3.Vec
	Velocity       []r3.Vec
	Streamfunction []r3.Vec
}

// Filament rebuilds the filament with a discretization method supplied
// by the reader (the record does not fix one).
func (fr FilamentRecord) Filament(method filament.Discretisation) (*filament.Filament, error) {
	return filament.New(fr.Nodes, method, fr.Offset)
}

// StepRecord is the persisted state of one accepted step.
type StepRecord struct {
	Time      float64
	Step      int64
	Filaments []FilamentRecord
}

// Writer appends step records to a run file.
type Writer struct {
	ID  string
	f   *os.File
	buf *bufio.Writer
}

func newWriter(path, id string) (*Writer, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	w := &Writer{ID: id, f: f, buf: bufio.NewWriter(f)}
	if _, err := w.buf.WriteString(recordMagic); err != nil {
		f.Close()
		return nil, err
	}
	if err := binary.Write(w.buf, binary.LittleEndian, recordVersion); err != nil {
		f.Close()
		return nil, err
	}
	return w, nil
}

// WriteStep appends one step record.
func (w *Writer) WriteStep(rec StepRecord) error {
	if err := binary.Write(w.buf, binary.LittleEndian, rec.Time); err != nil {
		return err
	}
	if err := binary.Write(w.buf, binary.LittleEndian, rec.Step); err != nil {
		return err
	}
	if err := binary.Write(w.buf, binary.LittleEndian, int32(len(rec.Filaments))); err != nil {
		return err
	}
	for _, fr := range rec.Filaments {
		if err := w.writeFilament(fr); err != nil {
			return err
		}
	}
	return w.buf.Flush()
}

func (w *Writer) writeFilament(fr FilamentRecord) error {
	if err := writeVec(w.buf, fr.Offset); err != nil {
		return err
	}
	if err := binary.Write(w.buf, binary.LittleEndian, int32(len(fr.Nodes))); err != nil {
		return err
	}
	var flags uint8
	if fr.Velocity != nil {
		flags |= flagVelocity
	}
	if fr.Streamfunction != nil {
		flags |= flagStreamfunction
	}
	if err := binary.Write(w.buf, binary.LittleEndian, flags); err != nil {
		return err
	}
	for _, vs := range [][]r3.Vec{fr.Nodes, fr.Velocity, fr.Streamfunction} {
		for _, v := range vs {
			if err := writeVec(w.buf, v); err != nil {
				return err
			}
		}
	}
	return nil
}

// Close flushes and closes the record file.
func (w *Writer) Close() error {
	if err := w.buf.Flush(); err != nil {
		w.f.Close()
		return err
	}
	return w.f.Close()
}

// Reader iterates the step records of a run.
type Reader struct {
	f   *os.File
	buf *bufio.Reader
}

func newReader(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	r := &Reader{f: f, buf: bufio.NewReader(f)}
	magic := make([]byte, len(recordMagic))
	if _, err := io.ReadFull(r.buf, magic); err != nil {
		f.Close()
		return nil, err
	}
	if string(magic) != recordMagic {
		f.Close()
		return nil, fmt.Errorf("storage: bad magic %q", magic)
	}
	var version uint32
	if err := binary.Read(r.buf, binary.LittleEndian, &version); err != nil {
		f.Close()
		return nil, err
	}
	if version != recordVersion {
		f.Close()
		return nil, fmt.Errorf("storage: unsupported version %d", version)
	}
	return r, nil
}

// ReadStep returns the next record, or io.EOF after the last one.
func (r *Reader) ReadStep() (StepRecord, error) {
	var rec StepRecord
	if err := binary.Read(r.buf, binary.LittleEndian, &rec.Time); err != nil {
		return rec, err
	}
	if err := binary.Read(r.buf, binary.LittleEndian, &rec.Step); err != nil {
		return rec, err
	}
	var nfil int32
	if err := binary.Read(r.buf, binary.LittleEndian, &nfil); err != nil {
		return rec, err
	}
	rec.Filaments = make([]FilamentRecord, nfil)
	for i := range rec.Filaments {
		fr, err := r.readFilament()
		if err != nil {
			return rec, err
		}
		rec.Filaments[i] = fr
	}
	return rec, nil
}

func (r *Reader) readFilament() (FilamentRecord, error) {
	var fr FilamentRecord
	var err error
	if fr.Offset, err = readVec(r.buf); err != nil {
		return fr, err
	}
	var n int32
	if err := binary.Read(r.buf, binary.LittleEndian, &n); err != nil {
		return fr, err
	}
	var flags uint8
	if err := binary.Read(r.buf, binary.LittleEndian, &flags); err != nil {
		return fr, err
	}
	if fr.Nodes, err = readVecs(r.buf, int(n)); err != nil {
		return fr, err
	}
	if flags&flagVelocity != 0 {
		if fr.Velocity, err = readVecs(r.buf, int(n)); err != nil {
			return fr, err
		}
	}
	if flags&flagStreamfunction != 0 {
		if fr.Streamfunction, err = readVecs(r.buf, int(n)); err != nil {
			return fr, err
		}
	}
	return fr, nil
}

// Close releases the underlying file.
func (r *Reader) Close() error { return r.f.Close() }

func writeVec(w io.Writer, v r3.Vec) error {
	return binary.Write(w, binary.LittleEndian, [3]float64{v.X, v.Y, v.Z})
}

func readVec(r io.Reader) (r3.Vec, error) {
	var c [3]float64
	if err := binary.Read(r, binary.LittleEndian, &c); err != nil {
		return r3.Vec{}, err
	}
	return r3.Vec{X: c[0], Y: c[1], Z: c[2]}, nil
}

func readVecs(r io.Reader, n int) ([]r3.Vec, error) {
	out := make([]r3.Vec, n)
	for i := range out {
		v, err := readVec(r)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}
