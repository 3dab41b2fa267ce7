package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/drblury/resourcewatch/internal/runtime/console"
	"github.com/drblury/resourcewatch/internal/runtime/grip"
	"github.com/drblury/resourcewatch/internal/runtime/sink"
	"github.com/drblury/resourcewatch/internal/runtime/target"
	"github.com/drblury/resourcewatch/internal/runtime/watcher"
	iotransport "github.com/drblury/resourcewatch/transport/io"
)

func resetFlags(t *testing.T) {
	t.Helper()
	configPath, logLevel, logFormat = "", "", ""
	tailReplay, tailLimit, tailFormat = false, 0, "text"
	t.Cleanup(func() {
		configPath, logLevel, logFormat = "", "", ""
		tailReplay, tailLimit, tailFormat = false, 0, "text"
	})
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "resourcewatch.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestVersionCommand(t *testing.T) {
	var out bytes.Buffer
	versionCmd.SetOut(&out)
	versionCmd.Run(versionCmd, nil)

	assert.Contains(t, out.String(), `"name": "resourcewatch"`)
	assert.Contains(t, out.String(), version)
}

func TestLoadConfigAppliesLoggingFlags(t *testing.T) {
	resetFlags(t)
	configPath = writeConfig(t, "pubsub_system: channel\nlog_level: info\n")
	logLevel = "debug"
	logFormat = "text"

	cfg, err := loadConfig()
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
}

func TestTailRejectsUnknownFormat(t *testing.T) {
	resetFlags(t)
	tailFormat = "xml"

	err := runTail(tailCmd, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid --format")
}

func TestTailReplayRequiresReplayableTransport(t *testing.T) {
	resetFlags(t)
	configPath = writeConfig(t, "pubsub_system: channel\n")
	tailReplay = true
	tailCmd.SetContext(context.Background())
	tailCmd.SetErr(&bytes.Buffer{})

	err := runTail(tailCmd, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cannot replay")
}

func TestTailReplayPrintsArchivedBatches(t *testing.T) {
	resetFlags(t)
	archive := filepath.Join(t.TempDir(), "archive.ndjson")
	configPath = writeConfig(t, "pubsub_system: io\nio_file: "+archive+"\n")
	publishBatches(t, archive)

	tailReplay = true
	var out bytes.Buffer
	tailCmd.SetOut(&out)
	tailCmd.SetErr(&bytes.Buffer{})
	tailCmd.SetContext(context.Background())

	require.NoError(t, runTail(tailCmd, nil))

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "history #"))
	assert.Contains(t, lines[0], "[log] https://example.test/a.js:3 hello 2")
	assert.True(t, strings.HasPrefix(lines[1], "live #"))
	assert.Contains(t, lines[1], "[error]")
}

func TestTailReplayJSONHonoursLimit(t *testing.T) {
	resetFlags(t)
	archive := filepath.Join(t.TempDir(), "archive.ndjson")
	configPath = writeConfig(t, "pubsub_system: io\nio_file: "+archive+"\n")
	publishBatches(t, archive)

	tailReplay = true
	tailLimit = 1
	tailFormat = "json"
	var out bytes.Buffer
	tailCmd.SetOut(&out)
	tailCmd.SetErr(&bytes.Buffer{})
	tailCmd.SetContext(context.Background())

	require.NoError(t, runTail(tailCmd, nil))

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 1)
	assert.Contains(t, lines[0], `"phase":"history"`)
	assert.Contains(t, lines[0], `"targetKind":"frame"`)
}

func TestDescribeGrips(t *testing.T) {
	got := summarize([]*grip.Grip{
		{Type: grip.TypeString, Value: "a"},
		{Type: grip.TypeNumber, Value: 1.5},
		{Type: grip.TypeUndefined},
		{Type: grip.TypeNaN},
		{Type: grip.TypeObject, Class: "Array", Preview: &grip.Preview{Kind: grip.PreviewArrayLike, Length: 3}},
		{Type: grip.TypeObject, Class: "Object"},
		nil,
	})
	assert.Equal(t, "a 1.5 undefined NaN Array(3) Object undefined", got)
}

func publishBatches(t *testing.T, path string) {
	t.Helper()
	pub := iotransport.NewPublisher(path, nil)

	s, err := sink.NewPublisherSink(pub, sink.PublisherConfig{Topic: "resourcewatch.console-message"})
	require.NoError(t, err)

	resource := func(level string, args ...*grip.Grip) watcher.Resource {
		return watcher.Resource{
			ResourceType: watcher.ConsoleMessage,
			Message: console.Record{
				Level:      level,
				Arguments:  args,
				Filename:   "https://example.test/a.js",
				LineNumber: 3,
				SourceID:   console.UnresolvedSourceID,
				Category:   console.DefaultCategory,
			},
		}
	}

	ctx := context.Background()
	require.NoError(t, s.Deliver(ctx, sink.Batch{
		TargetID:   "frame1",
		TargetKind: target.KindFrame,
		Phase:      watcher.PhaseHistory,
		Resources: []watcher.Resource{resource("log",
			&grip.Grip{Type: grip.TypeString, Value: "hello"},
			&grip.Grip{Type: grip.TypeNumber, Value: 2})},
	}))
	require.NoError(t, s.Deliver(ctx, sink.Batch{
		TargetID:   "frame1",
		TargetKind: target.KindFrame,
		Phase:      watcher.PhaseLive,
		Resources:  []watcher.Resource{resource("error")},
	}))
	require.NoError(t, pub.Close())
}
