package infra

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/png"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"pixelplace/place/domain"

	"golang.org/x/image/draw"
)

// snapshotLayout ordena lexicograficamente na mesma ordem do tempo.
// Resolução de nanossegundos: duas colocações no mesmo segundo não se sobrescrevem.
const snapshotLayout = "2006-01-02_15-04-05.000000000"

const snapshotExt = ".png"

// FileCanvas é o canvas autoritativo: imagem em memória + PNG em disco +
// diretório de snapshots (um PNG por colocação aceita, nunca reescrito).
type FileCanvas struct {
	mu   sync.RWMutex
	img  *image.NRGBA
	side int

	path        string
	snapshotDir string
	count       int
	lastSnap    time.Time

	now func() time.Time
}

var _ domain.CanvasStore = (*FileCanvas)(nil)

type CanvasOption func(*FileCanvas)

// WithCanvasClock troca o relógio usado para nomear snapshots.
func WithCanvasClock(now func() time.Time) CanvasOption {
	return func(c *FileCanvas) { c.now = now }
}

// OpenFileCanvas carrega (ou cria) o canvas e reconcilia com o histórico:
//
//   - havendo snapshots, o mais recente é a verdade e o canvas em disco é
//     regravado se divergir (ex.: canvas gravado mas snapshot falhou)
//   - senão, um canvas existente em disco é carregado
//   - senão, um canvas preto side×side é criado e persistido
//
// Um canvas ou snapshot com outro tamanho é erro: as dimensões nunca mudam.
func OpenFileCanvas(path, snapshotDir string, side int, opts ...CanvasOption) (*FileCanvas, error) {
	if side <= 0 {
		return nil, fmt.Errorf("canvas side must be > 0, got %d", side)
	}

	c := &FileCanvas{
		side:        side,
		path:        path,
		snapshotDir: snapshotDir,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}

	if err := os.MkdirAll(snapshotDir, 0o755); err != nil {
		return nil, fmt.Errorf("create snapshot dir: %w", err)
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create canvas dir: %w", err)
		}
	}

	names, err := c.snapshotNames()
	if err != nil {
		return nil, err
	}
	c.count = len(names)

	switch {
	case len(names) > 0:
		newest := names[len(names)-1]
		img, err := c.decodeSized(filepath.Join(snapshotDir, newest))
		if err != nil {
			return nil, fmt.Errorf("load snapshot %s: %w", newest, err)
		}
		c.img = img
		if t, err := time.Parse(snapshotLayout, strings.TrimSuffix(newest, snapshotExt)); err == nil {
			c.lastSnap = t
		}

		cur, err := c.decodeSized(path)
		if err != nil || !bytes.Equal(cur.Pix, img.Pix) {
			if err := c.persistCanvas(); err != nil {
				return nil, err
			}
		}

	case fileExists(path):
		img, err := c.decodeSized(path)
		if err != nil {
			return nil, fmt.Errorf("load canvas: %w", err)
		}
		c.img = img

	default:
		c.img = blankCanvas(side)
		if err := c.persistCanvas(); err != nil {
			return nil, err
		}
	}

	return c, nil
}

func (c *FileCanvas) Side() int { return c.side }

func (c *FileCanvas) Pixel(col, row int) domain.RGB {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return domain.FromColor(c.img.NRGBAAt(col, row))
}

// SetPixel altera a memória, grava o canvas e adiciona um snapshot.
// Em falha de disco a memória continua alterada e o erro embrulha domain.ErrStorage.
func (c *FileCanvas) SetPixel(col, row int, rgb domain.RGB) error {
	if col < 0 || row < 0 || col >= c.side || row >= c.side {
		return fmt.Errorf("pixel (%d,%d) outside %dx%d canvas", col, row, c.side, c.side)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.img.SetNRGBA(col, row, rgb.NRGBA())

	data, err := encodePNG(c.img)
	if err != nil {
		return fmt.Errorf("%w: encode canvas: %w", domain.ErrStorage, err)
	}
	if err := writeFileAtomic(c.path, data); err != nil {
		return fmt.Errorf("%w: write canvas: %w", domain.ErrStorage, err)
	}
	if err := c.appendSnapshot(data); err != nil {
		return fmt.Errorf("%w: write snapshot: %w", domain.ErrStorage, err)
	}
	return nil
}

func (c *FileCanvas) SnapshotCount() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.count
}

// Image devolve uma cópia; quem renderiza não segura o lock.
func (c *FileCanvas) Image() image.Image {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := image.NewNRGBA(c.img.Rect)
	copy(out.Pix, c.img.Pix)
	return out
}

// EachSnapshot decodifica os snapshots em ordem de criação.
func (c *FileCanvas) EachSnapshot(fn func(img image.Image) error) error {
	names, err := c.snapshotNames()
	if err != nil {
		return err
	}
	for _, name := range names {
		img, err := decodePNGFile(filepath.Join(c.snapshotDir, name))
		if err != nil {
			return fmt.Errorf("load snapshot %s: %w", name, err)
		}
		if err := fn(img); err != nil {
			return err
		}
	}
	return nil
}

// appendSnapshot cria o arquivo com O_EXCL: snapshots são write-once.
func (c *FileCanvas) appendSnapshot(data []byte) error {
	t := c.now().UTC()
	if !t.After(c.lastSnap) {
		t = c.lastSnap.Add(time.Nanosecond)
	}

	for attempt := 0; attempt < 16; attempt++ {
		path := filepath.Join(c.snapshotDir, t.Format(snapshotLayout)+snapshotExt)
		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if errors.Is(err, fs.ErrExist) {
			t = t.Add(time.Nanosecond)
			continue
		}
		if err != nil {
			return err
		}

		if _, err := f.Write(data); err != nil {
			_ = f.Close()
			_ = os.Remove(path)
			return err
		}
		if err := f.Close(); err != nil {
			_ = os.Remove(path)
			return err
		}

		c.lastSnap = t
		c.count++
		return nil
	}
	return errors.New("could not allocate a unique snapshot name")
}

func (c *FileCanvas) persistCanvas() error {
	data, err := encodePNG(c.img)
	if err != nil {
		return fmt.Errorf("encode canvas: %w", err)
	}
	if err := writeFileAtomic(c.path, data); err != nil {
		return fmt.Errorf("write canvas: %w", err)
	}
	return nil
}

func (c *FileCanvas) snapshotNames() ([]string, error) {
	entries, err := os.ReadDir(c.snapshotDir)
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), snapshotExt) || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names, nil
}

func (c *FileCanvas) decodeSized(path string) (*image.NRGBA, error) {
	img, err := decodePNGFile(path)
	if err != nil {
		return nil, err
	}
	if b := img.Bounds(); b.Dx() != c.side || b.Dy() != c.side {
		return nil, fmt.Errorf("%s is %dx%d, expected %dx%d", path, b.Dx(), b.Dy(), c.side, c.side)
	}
	return img, nil
}

func decodePNGFile(path string) (*image.NRGBA, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	src, err := png.Decode(f)
	if err != nil {
		return nil, err
	}
	b := src.Bounds()
	dst := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), src, b.Min, draw.Src)
	// canvas é sempre opaco
	for i := 3; i < len(dst.Pix); i += 4 {
		dst.Pix[i] = 0xff
	}
	return dst, nil
}

func encodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func blankCanvas(side int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, side, side))
	for i := 3; i < len(img.Pix); i += 4 {
		img.Pix[i] = 0xff
	}
	return img
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
