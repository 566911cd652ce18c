package logger

import (
	"bytes"
	"encoding/json"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

// LoggerTestSuite defines a test suite for logger functions
type LoggerTestSuite struct {
	suite.Suite
	buffer *bytes.Buffer
}

func (suite *LoggerTestSuite) SetupTest() {
	suite.buffer = &bytes.Buffer{}
}

func (suite *LoggerTestSuite) decodeLines() []map[string]interface{} {
	var entries []map[string]interface{}
	for _, line := range strings.Split(strings.TrimSpace(suite.buffer.String()), "\n") {
		if line == "" {
			continue
		}
		entry := map[string]interface{}{}
		require.NoError(suite.T(), json.Unmarshal([]byte(line), &entry))
		entries = append(entries, entry)
	}
	return entries
}

func (suite *LoggerTestSuite) TestNewLoggerReturnsLogrusLogger() {
	l := NewLogger("info", "json")
	assert.IsType(suite.T(), &LogrusLogger{}, l)
}

func (suite *LoggerTestSuite) TestLevelFiltering() {
	testCases := []struct {
		level    string
		expected int
	}{
		{"debug", 4},
		{"info", 3},
		{"warn", 2},
		{"error", 1},
		{"unknown", 3},
	}

	for _, tc := range testCases {
		suite.Run(tc.level, func() {
			suite.buffer.Reset()
			l := NewLoggerWithOutput(tc.level, "json", suite.buffer)
			l.Debug("debug")
			l.Info("info")
			l.Warn("warn")
			l.Error("error")
			assert.Len(suite.T(), suite.decodeLines(), tc.expected)
		})
	}
}

func (suite *LoggerTestSuite) TestJSONFormat() {
	l := NewLoggerWithOutput("info", "json", suite.buffer)
	l.Infof("assigned job %s", "JOB-000001")

	entries := suite.decodeLines()
	require.Len(suite.T(), entries, 1)
	assert.Equal(suite.T(), "assigned job JOB-000001", entries[0]["msg"])
	assert.Equal(suite.T(), "info", entries[0]["level"])
}

func (suite *LoggerTestSuite) TestTextFormat() {
	l := NewLoggerWithOutput("info", "text", suite.buffer)
	l.Warn("capacity exceeded")
	assert.Contains(suite.T(), suite.buffer.String(), "capacity exceeded")
}

func (suite *LoggerTestSuite) TestWithFieldsAttachesFields() {
	l := NewLoggerWithOutput("info", "json", suite.buffer)
	scoped := l.WithFields(map[string]interface{}{"job_id": "j-1", "technician_id": "t-1"})
	scoped.Info("claimed")
	l.Info("plain")

	entries := suite.decodeLines()
	require.Len(suite.T(), entries, 2)
	assert.Equal(suite.T(), "j-1", entries[0]["job_id"])
	assert.Equal(suite.T(), "t-1", entries[0]["technician_id"])
	_, hasField := entries[1]["job_id"]
	assert.False(suite.T(), hasField)
}

func TestLoggerTestSuite(t *testing.T) {
	suite.Run(t, new(LoggerTestSuite))
}

func TestLoggerConcurrency(t *testing.T) {
	var buf safeBuffer
	l := NewLoggerWithOutput("info", "json", &buf)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			l.WithFields(map[string]interface{}{"n": n}).Info("tick")
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 20, strings.Count(buf.String(), "\n"))
}

type safeBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *safeBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *safeBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}
