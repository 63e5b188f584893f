package cli

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGuideCmd_Use(t *testing.T) {
	assert.Equal(t, "guide [product-id]", guideCmd.Use)
}

func TestGuideCmd_RequiresExactlyOneArg(t *testing.T) {
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs([]string{"guide"})
	defer rootCmd.SetArgs(nil)

	err := rootCmd.Execute()

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "accepts 1 arg(s)")
}

func TestGuideCmd_AnswersQuestionsAndEnds(t *testing.T) {
	_, sessions, cleanup := setupTestServices()
	defer cleanup()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetIn(strings.NewReader("how do I mount it\n/end\n"))
	rootCmd.SetArgs([]string{"guide", "dehnguard"})
	defer func() {
		rootCmd.SetArgs(nil)
		rootCmd.SetIn(nil)
	}()

	err := rootCmd.Execute()

	require.NoError(t, err)
	out := buf.String()
	assert.Contains(t, out, "Session sess-1 started for DEHNguard M")
	assert.Contains(t, out, "Mount the device on the upper DIN rail.")
	assert.Contains(t, out, "Session ended.")
	assert.Equal(t, []string{"sess-1"}, sessions.ended)
}

func TestGuideCmd_SlashCommands(t *testing.T) {
	_, _, cleanup := setupTestServices()
	defer cleanup()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetIn(strings.NewReader("/step 3\n/status\n/end\n"))
	rootCmd.SetArgs([]string{"guide", "dehnguard"})
	defer func() {
		rootCmd.SetArgs(nil)
		rootCmd.SetIn(nil)
	}()

	err := rootCmd.Execute()

	require.NoError(t, err)
	out := buf.String()
	assert.Contains(t, out, "Now on step 3.")
	assert.Contains(t, out, "Session sess-1: active")
}

func TestGuideCmd_EOFEndsSession(t *testing.T) {
	_, sessions, cleanup := setupTestServices()
	defer cleanup()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetIn(strings.NewReader(""))
	rootCmd.SetArgs([]string{"guide", "dehnguard"})
	defer func() {
		rootCmd.SetArgs(nil)
		rootCmd.SetIn(nil)
	}()

	err := rootCmd.Execute()

	require.NoError(t, err)
	assert.Equal(t, []string{"sess-1"}, sessions.ended)
}
