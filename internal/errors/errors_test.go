package errors

import (
	stderrors "errors"
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatchErrorWrapping(t *testing.T) {
	underlying := fs.ErrNotExist
	err := NewWatchError("start", "/srv/project", underlying)

	assert.Equal(t, ErrorTypeWatch, err.Type)
	assert.Contains(t, err.Error(), "/srv/project")
	assert.Contains(t, err.Error(), "start")
	assert.True(t, stderrors.Is(err, fs.ErrNotExist))

	// Without a path the message drops the "for <path>" segment.
	bare := NewWatchError("stop", "", underlying)
	assert.NotContains(t, bare.Error(), "for")
}

func TestAnalysisErrorTimeout(t *testing.T) {
	underlying := stderrors.New("context deadline exceeded")
	err := NewAnalysisError("src/app.ts", "realtime", underlying).WithTimeout()

	assert.Equal(t, ErrorTypeTimeout, err.Type)
	assert.Contains(t, err.Error(), "src/app.ts")
	assert.Contains(t, err.Error(), "realtime")
	assert.True(t, stderrors.Is(err, underlying))
}

func TestAnalysisErrorAs(t *testing.T) {
	var target *AnalysisError
	err := NewAnalysisError("main.go", "batch", stderrors.New("boom"))

	require.True(t, stderrors.As(error(err), &target))
	assert.Equal(t, "batch", target.Source)
}

func TestFileErrorPermissionClassification(t *testing.T) {
	denied := NewFileError("read", "/etc/shadow", stderrors.New("permission denied"))
	assert.Equal(t, ErrorTypePermission, denied.Type)

	missing := NewFileError("read", "/tmp/nope", stderrors.New("no such file"))
	assert.Equal(t, ErrorTypeFileNotFound, missing.Type)
	assert.True(t, stderrors.Is(missing, missing.Underlying))
}

func TestConfigErrorMessage(t *testing.T) {
	err := NewConfigError("max_concurrent", "-1", stderrors.New("must be positive"))

	assert.Contains(t, err.Error(), "max_concurrent")
	assert.Contains(t, err.Error(), "-1")
	assert.True(t, stderrors.Is(err, err.Underlying))
}

func TestLogReporterNilError(t *testing.T) {
	// Must be a no-op rather than logging a nil entry.
	NewLogReporter().Report(nil, ReportContext{Component: "executor"}, SeverityLow)
}
