package log

import (
	"bytes"
	"context"
	"flag"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"k8s.io/klog/v2"
)

func TestLog(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "hello", Log(context.Background(), "hello"))
	assert.Equal(t, "ID: 42 hello", Log(WithID(context.Background(), "42"), "hello"))
}

func TestLeveledHelpers(t *testing.T) {
	fs := flag.NewFlagSet("log", flag.ContinueOnError)
	klog.InitFlags(fs)
	require.NoError(t, fs.Set("v", "3"))

	var buf bytes.Buffer
	klog.LogToStderr(false)
	klog.SetOutput(&buf)
	t.Cleanup(func() {
		_ = fs.Set("v", "0")
		klog.LogToStderr(true)
	})

	ctx := WithID(context.Background(), "7")
	WarningLog(ctx, "lost %d buffers", 2)
	UsefulLog(ctx, "connected")
	ExtendedLogMsg("extended %s", "details")
	DebugLogMsg("hidden debug")
	TraceLogMsg("hidden trace")
	klog.Flush()

	out := buf.String()
	assert.Contains(t, out, "ID: 7 lost 2 buffers")
	assert.Contains(t, out, "ID: 7 connected")
	assert.Contains(t, out, "extended details")
	assert.NotContains(t, out, "hidden")
}
