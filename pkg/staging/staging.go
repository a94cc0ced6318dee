// Package staging downloads and unpacks the dependency archive of a task so
// that the engine can load its jars and python files.
//
// Staging only applies to the kubernetes-application runtime type and is best
// effort: callers log a failure and submit without dependencies. The archive is
// read from the dependency service over HTTP, or from an object store when the
// configured address is an s3:// URL.
//
// Archive layout:
//
//	jar/  jar files, moved into {home}/usrlib
//	py/   python files, referenced in place from {home}/dep/py
package staging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/pkg/errors"
	"github.com/pseudomuto/streamkeeper/pkg/consts"
	"github.com/pseudomuto/streamkeeper/pkg/task"
)

const (
	// ConfigJars is the engine config key listing staged jars.
	ConfigJars = "pipeline.jars"

	// ConfigPythonFiles is the engine config key listing staged python files.
	ConfigPythonFiles = "python.files"

	archiveName  = "dep.zip"
	depDir       = "dep"
	usrlibDir    = "usrlib"
	digestMarker = ".digest"
)

// ErrNoArchive is returned by a Source when the task has no dependency archive.
var ErrNoArchive = errors.New("no dependency archive")

type (
	// Request identifies the task to stage dependencies for.
	Request struct {
		TaskID      task.ID
		RuntimeType string

		// Addr is the dependency service address (host:port) or an
		// s3://bucket/prefix URL.
		Addr string
	}

	// Result describes staged dependencies as file:// URLs.
	Result struct {
		Staged  bool
		Jars    []string
		PyFiles []string
	}

	// Source opens the dependency archive for a task.
	Source interface {
		Open(ctx context.Context, req Request) (io.ReadCloser, error)
	}

	// Options configure a Stager.
	Options struct {
		// Home is the engine home directory. Defaults to $FLINK_HOME.
		Home string

		// ConnectTimeout bounds connection setup of the HTTP source.
		ConnectTimeout time.Duration

		// HTTP and S3 override the default sources. S3 is optional; without it,
		// s3:// addresses fail.
		HTTP Source
		S3   Source

		Logger *slog.Logger
	}

	// Stager stages dependency archives under a home directory.
	Stager struct {
		home   string
		http   Source
		s3     Source
		logger *slog.Logger
	}

	// Error reports a staging failure.
	Error struct {
		TaskID task.ID
		Step   string
		Err    error
	}
)

func (e *Error) Error() string {
	return fmt.Sprintf("failed to stage dependencies of task %s: %s: %v", e.TaskID, e.Step, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Config returns the engine config entries for the staged files. Empty lists
// contribute no entry.
func (r Result) Config() map[string]string {
	cfg := make(map[string]string)
	if len(r.Jars) > 0 {
		cfg[ConfigJars] = strings.Join(r.Jars, ";")
	}

	if len(r.PyFiles) > 0 {
		cfg[ConfigPythonFiles] = strings.Join(r.PyFiles, ",")
	}

	return cfg
}

// New creates a Stager.
func New(opts Options) *Stager {
	home := opts.Home
	if home == "" {
		home = os.Getenv("FLINK_HOME")
	}

	timeout := opts.ConnectTimeout
	if timeout <= 0 {
		timeout = consts.DefaultStagingConnectTimeout
	}

	httpSource := opts.HTTP
	if httpSource == nil {
		httpSource = NewHTTPSource(timeout)
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Stager{
		home:   home,
		http:   httpSource,
		s3:     opts.S3,
		logger: logger,
	}
}

// Stage downloads and unpacks the dependency archive of req.TaskID.
//
// Nothing is staged (and no error returned) for runtime types other than
// kubernetes-application, for an empty address, or when the source has no
// archive for the task. An archive identical to the last extracted one is not
// extracted again.
func (s *Stager) Stage(ctx context.Context, req Request) (Result, error) {
	if req.RuntimeType != consts.KubernetesApplication || strings.TrimSpace(req.Addr) == "" {
		return Result{}, nil
	}

	if s.home == "" {
		return Result{}, &Error{TaskID: req.TaskID, Step: "resolve home", Err: errors.New("home directory not set")}
	}

	src, err := s.source(req.Addr)
	if err != nil {
		return Result{}, &Error{TaskID: req.TaskID, Step: "select source", Err: err}
	}

	archive := filepath.Join(s.home, archiveName)
	digest, err := download(ctx, src, req, archive)
	if errors.Is(err, ErrNoArchive) {
		s.logger.Info("No dependency archive for task", "task_id", req.TaskID)
		return Result{}, nil
	}
	if err != nil {
		return Result{}, &Error{TaskID: req.TaskID, Step: "download", Err: err}
	}

	dep := filepath.Join(s.home, depDir)
	if readMarker(dep) == digest {
		s.logger.Info("Dependency archive unchanged, skipping extraction", "task_id", req.TaskID, "digest", digest)
	} else {
		if err := os.RemoveAll(dep); err != nil {
			return Result{}, &Error{TaskID: req.TaskID, Step: "clean", Err: err}
		}

		if err := unzip(archive, dep); err != nil {
			return Result{}, &Error{TaskID: req.TaskID, Step: "extract", Err: err}
		}

		if err := os.WriteFile(filepath.Join(dep, digestMarker), []byte(digest), consts.ModeFile); err != nil {
			return Result{}, &Error{TaskID: req.TaskID, Step: "extract", Err: err}
		}
	}

	usrlib := filepath.Join(s.home, usrlibDir)
	if err := moveAll(filepath.Join(dep, "jar"), usrlib); err != nil {
		return Result{}, &Error{TaskID: req.TaskID, Step: "move jars", Err: err}
	}

	jars, err := fileURLs(usrlib)
	if err != nil {
		return Result{}, &Error{TaskID: req.TaskID, Step: "list jars", Err: err}
	}

	pyFiles, err := fileURLs(filepath.Join(dep, "py"))
	if err != nil {
		return Result{}, &Error{TaskID: req.TaskID, Step: "list python files", Err: err}
	}

	s.logger.Info("Staged dependencies", "task_id", req.TaskID, "jars", len(jars), "py_files", len(pyFiles))
	return Result{Staged: true, Jars: jars, PyFiles: pyFiles}, nil
}

func (s *Stager) source(addr string) (Source, error) {
	if !strings.HasPrefix(addr, "s3://") {
		return s.http, nil
	}

	if s.s3 == nil {
		return nil, errors.Errorf("object store not configured for %s", addr)
	}

	return s.s3, nil
}

// download copies the archive to path and returns its hex xxhash digest.
func download(ctx context.Context, src Source, req Request, path string) (string, error) {
	rc, err := src.Open(ctx, req)
	if err != nil {
		return "", err
	}
	defer func() { _ = rc.Close() }()

	if err := os.MkdirAll(filepath.Dir(path), consts.ModeDir); err != nil {
		return "", errors.Wrap(err, "failed to create home directory")
	}

	f, err := os.Create(path)
	if err != nil {
		return "", errors.Wrapf(err, "failed to create %s", path)
	}
	defer func() { _ = f.Close() }()

	h := xxhash.New()
	if _, err := io.Copy(io.MultiWriter(f, h), rc); err != nil {
		return "", errors.Wrap(err, "failed to write archive")
	}

	return fmt.Sprintf("%016x", h.Sum64()), nil
}

func readMarker(dir string) string {
	data, err := os.ReadFile(filepath.Join(dir, digestMarker))
	if err != nil {
		return ""
	}

	return strings.TrimSpace(string(data))
}

// moveAll moves the regular files of src into dst, replacing existing files. A
// missing src is not an error.
func moveAll(src, dst string) error {
	entries, err := os.ReadDir(src)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}

	if err := os.MkdirAll(dst, consts.ModeDir); err != nil {
		return err
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		if err := os.Rename(filepath.Join(src, entry.Name()), filepath.Join(dst, entry.Name())); err != nil {
			return errors.Wrapf(err, "failed to move %s", entry.Name())
		}
	}

	return nil
}

// fileURLs lists the regular files of dir as sorted file:// URLs. A missing dir
// yields nil.
func fileURLs(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}

	var urls []string
	for _, entry := range entries {
		if entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}

		u := url.URL{Scheme: "file", Path: filepath.ToSlash(filepath.Join(abs, entry.Name()))}
		urls = append(urls, u.String())
	}

	slices.Sort(urls)
	return urls, nil
}
