package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommandsRegistered(t *testing.T) {
	names := make(map[string]bool)
	for _, cmd := range rootCmd.Commands() {
		names[cmd.Name()] = true
	}
	for _, want := range []string{"watch", "doctor", "version", "completion", "man", "help"} {
		assert.True(t, names[want], "command %s should be registered", want)
	}
}

func TestHelpTopicResolves(t *testing.T) {
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"help", "triggers"})
	require.NoError(t, rootCmd.Execute())
	assert.Contains(t, out.String(), "bang extension")
}

func TestHelpTopicsIndexListsEmbeddedDocs(t *testing.T) {
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"help", "topics"})
	require.NoError(t, rootCmd.Execute())
	for _, topic := range []string{"triggers", "versions", "engines", "configuration"} {
		assert.Contains(t, out.String(), topic)
	}
}

func TestCompletionBash(t *testing.T) {
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"completion", "bash"})
	require.NoError(t, rootCmd.Execute())
	assert.Contains(t, out.String(), "morphd")
}
