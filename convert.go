package shadertoy

import (
	"context"
	"errors"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/bodgit/img2shadertoy/bmp"
)

const convertWorkers = 4

// LoadImage reads path and returns it as an indexed Image. Bitmap
// containers keep their native palette and bit depth; any other
// registered image format is quantized to depth bits per pixel.
func LoadImage(path string, depth int) (*Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	if strings.EqualFold(filepath.Ext(path), ".bmp") {
		b, err := bmp.Decode(f)
		if err != nil {
			return nil, err
		}
		return FromBitmap(b), nil
	}

	m, _, err := image.Decode(f)
	if err != nil {
		return nil, err
	}

	return FromImage(m, depth)
}

func (e *Encoder) findFiles(ctx context.Context, paths []string) (<-chan string, <-chan error) {
	out := make(chan string)
	errc := make(chan error, 1)
	go func() {
		defer close(out)
		defer close(errc)
		for _, path := range paths {
			info, err := os.Stat(path)
			if err != nil {
				errc <- err
				return
			}
			if !info.Mode().IsRegular() {
				errc <- errors.New("not a regular file: " + path)
				return
			}

			select {
			case out <- path:
			case <-ctx.Done():
				errc <- errors.New("conversion cancelled")
				return
			}
		}
	}()
	return out, errc
}

func (e *Encoder) convertWorker(in <-chan string, mode Mode, depth int, opts *Options) <-chan error {
	errc := make(chan error, 1)
	go func() {
		defer close(errc)
		for path := range in {
			img, err := LoadImage(path, depth)
			if err != nil {
				errc <- err
				return
			}

			script, err := e.Encode(img, mode, opts)
			if err != nil {
				errc <- err
				return
			}

			out := strings.TrimSuffix(path, filepath.Ext(path)) + ".glsl"

			f, err := os.Create(out)
			if err != nil {
				errc <- err
				return
			}

			if _, err := f.WriteString(script); err != nil {
				f.Close()
				errc <- err
				return
			}

			if err := f.Close(); err != nil {
				errc <- err
				return
			}

			e.logger.Printf("converted \"%s\" to \"%s\" (%s, %dx%d)\n", path, out, mode, img.Width, img.Height)
		}
	}()
	return errc
}

func waitForPipeline(errs ...<-chan error) error {
	errc := mergeErrors(errs...)
	for err := range errc {
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

// ConvertFiles encodes every path with the same mode and options, writing
// each script next to its input with a .glsl extension. Files are
// converted concurrently; the first error cancels the remaining work.
func (e *Encoder) ConvertFiles(paths []string, mode Mode, depth int, opts *Options) error {
	ctx, cancelFunc := context.WithCancel(context.Background())
	defer cancelFunc()

	var errcList []<-chan error

	files, errc := e.findFiles(ctx, paths)
	errcList = append(errcList, errc)

	for i := 0; i < convertWorkers; i++ {
		errcList = append(errcList, e.convertWorker(files, mode, depth, opts))
	}

	return waitForPipeline(errcList...)
}
