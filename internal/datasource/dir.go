package datasource

import (
	"context"
	"path"
	"time"

	"github.com/spf13/afero"

	"github.com/villedieurio/evened-web/internal/errors"
	"github.com/villedieurio/evened-web/internal/format"
	"github.com/villedieurio/evened-web/internal/logger"
	"github.com/villedieurio/evened-web/internal/observability/metrics"
)

// Dir reads files below a root directory. Paths cannot escape the root.
type Dir struct {
	fs       afero.Fs
	root     string
	log      logger.Logger
	recorder metrics.Recorder
}

// NewDir returns a Dir rooted at root on the OS filesystem.
func NewDir(root string, opts ...Option) *Dir {
	return NewDirFs(afero.NewBasePathFs(afero.NewOsFs(), root), root, opts...)
}

// NewDirFs returns a Dir reading from fsys, which is treated as the root.
// root is only used in log messages.
func NewDirFs(fsys afero.Fs, root string, opts ...Option) *Dir {
	o := applyOptions(opts)
	return &Dir{
		fs:       fsys,
		root:     root,
		log:      o.log.With(logger.String("source", "dir")),
		recorder: o.recorder,
	}
}

// Name implements Source.
func (d *Dir) Name() string {
	return "dir"
}

// Fetch implements Source.
func (d *Dir) Fetch(ctx context.Context, p string) (data []byte, err error) {
	start := time.Now()
	defer func() { record(d.recorder, metrics.OpFetchDir, d.Name(), start, len(data), err) }()

	if err := ctx.Err(); err != nil {
		return nil, errors.New(err).
			Component("datasource").
			Category(errors.CategoryCancellation).
			Context("path", p).
			Build()
	}
	if isAbsoluteURL(p) {
		return nil, errors.Newf("directory source cannot fetch URL %s", p).
			Component("datasource").
			Category(errors.CategoryValidation).
			Context("path", p).
			Build()
	}

	clean := path.Clean("/" + p)
	info, err := d.fs.Stat(clean)
	if err != nil {
		return nil, d.readError(err, p)
	}
	if info.IsDir() {
		return nil, errors.Newf("%s is a directory", p).
			Component("datasource").
			Category(errors.CategoryFileIO).
			Context("path", p).
			Build()
	}
	if info.Size() > MaxFileSize {
		return nil, errors.Newf("%s exceeds %s", p, format.Bytes(MaxFileSize)).
			Component("datasource").
			Category(errors.CategoryFileIO).
			Context("path", p).
			Context("size", info.Size()).
			Build()
	}

	data, err = afero.ReadFile(d.fs, clean)
	if err != nil {
		return nil, d.readError(err, p)
	}

	d.log.Debug("file read",
		logger.String("path", clean),
		logger.String("size", format.Bytes(len(data))),
		logger.Duration("elapsed", time.Since(start)))

	return data, nil
}

func (d *Dir) readError(err error, p string) error {
	return errors.New(err).
		Component("datasource").
		Category(errors.CategoryFileIO).
		Context("path", p).
		Context("root", d.root).
		Build()
}
