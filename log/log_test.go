// Copyright (c) 2025 The DLPNet developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package log

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLazyLogger(t *testing.T) {
	logger := WithContext("pkg", "test")

	var buf bytes.Buffer
	SetDefault(NewJSONHandler(&buf, LevelInfo))
	defer Discard()

	logger.Debug("hidden")
	assert.Empty(t, buf.String())

	logger.With("epoch", 3).Info("created")
	assert.Contains(t, buf.String(), `"pkg":"test"`)
	assert.Contains(t, buf.String(), `"epoch":3`)
	assert.Contains(t, buf.String(), `"msg":"created"`)

	assert.True(t, logger.Enabled(LevelWarn))
	assert.False(t, logger.Enabled(LevelDebug))
}

func TestFromVerbosity(t *testing.T) {
	assert.Equal(t, LevelCrit, FromVerbosity(0))
	assert.Equal(t, LevelInfo, FromVerbosity(3))
	assert.Equal(t, LevelTrace, FromVerbosity(5))
}

func TestTerminalHandlerWithoutTTY(t *testing.T) {
	var buf bytes.Buffer
	SetDefault(NewTerminalHandler(&buf, LevelInfo))
	defer Discard()

	Root().Info("hello", "k", "v")
	assert.Contains(t, buf.String(), "hello")
	assert.Contains(t, buf.String(), "k=v")
	assert.False(t, isTerminal(&buf))
}
