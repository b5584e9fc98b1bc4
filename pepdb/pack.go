package pepdb

import (
	"bytes"
	"context"
	"errors"
	"image"
	"log"
	"os"
	"path/filepath"
	"sync"

	"github.com/ENDESGA/pep/pepimage"
)

const packWorkers = 10

// Packer walks a directory tree, compresses every supported image and
// stores the result.
type Packer struct {
	store  *Store
	logger *log.Logger
}

// NewPacker returns a Packer writing to store. Progress and skipped files
// are reported through logger.
func NewPacker(store *Store, logger *log.Logger) *Packer {
	return &Packer{
		store:  store,
		logger: logger,
	}
}

func supported(ext string) bool {
	switch ext {
	case ".gif", ".jpeg", ".jpg", ".png":
		return true
	}
	return false
}

func (p *Packer) findImages(ctx context.Context, base string) (<-chan string, <-chan error) {
	out := make(chan string)
	errc := make(chan error, 1)
	go func() {
		defer close(out)
		defer close(errc)
		errc <- filepath.Walk(base, func(file string, info os.FileInfo, err error) error {
			if err != nil {
				return err
			}

			// Ignore any hidden files or directories
			if info.Name()[0] == '.' {
				if info.Mode().IsDir() {
					return filepath.SkipDir
				}
				return nil
			}

			if !info.Mode().IsRegular() || !supported(filepath.Ext(file)) {
				return nil
			}

			select {
			case out <- file:
			case <-ctx.Done():
				return errors.New("walk cancelled")
			}

			return nil
		})
	}()
	return out, errc
}

func (p *Packer) imageWorker(ctx context.Context, in <-chan string) <-chan error {
	errc := make(chan error, 1)
	go func() {
		defer close(errc)
		for file := range in {
			f, err := os.Open(file)
			if err != nil {
				errc <- err
				return
			}

			m, _, err := image.Decode(f)
			f.Close()
			if err != nil {
				p.logger.Printf("Skipping \"%s\": %v\n", file, err)
				continue
			}

			var b bytes.Buffer
			if err := pepimage.Encode(&b, m, nil); err != nil {
				errc <- err
				return
			}

			key, err := p.store.Put(filepath.Base(file), b.Bytes())
			if err != nil {
				errc <- err
				return
			}

			p.logger.Printf("Packed \"%s\" as %s, %d bytes\n", file, key, b.Len())
		}
	}()
	return errc
}

func waitForPipeline(errs ...<-chan error) error {
	for err := range mergeErrors(errs...) {
		if err != nil {
			return err
		}
	}
	return nil
}

func mergeErrors(cs ...<-chan error) <-chan error {
	var wg sync.WaitGroup
	out := make(chan error, len(cs))
	wg.Add(len(cs))
	for _, c := range cs {
		go func(c <-chan error) {
			for n := range c {
				out <- n
			}
			wg.Done()
		}(c)
	}
	go func() {
		wg.Wait()
		close(out)
	}()
	return out
}

// Pack compresses every supported image below path into the store.
func (p *Packer) Pack(path string) error {
	dir, err := filepath.Abs(path)
	if err != nil {
		return err
	}

	ctx, cancelFunc := context.WithCancel(context.Background())
	defer cancelFunc()

	files, errc := p.findImages(ctx, dir)
	errcList := []<-chan error{errc}

	for i := 0; i < packWorkers; i++ {
		errcList = append(errcList, p.imageWorker(ctx, files))
	}

	return waitForPipeline(errcList...)
}
