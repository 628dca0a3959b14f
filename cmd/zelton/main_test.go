package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRootCommandWiring(t *testing.T) {
	root := newRootCmd()

	names := make([]string, 0, len(root.Commands()))
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}

	for _, want := range []string{"migrate", "seed", "serve", "scheduler", "all", "reconcile", "payouts"} {
		assert.Contains(t, names, want)
	}
}

func TestReconcileCommandFlags(t *testing.T) {
	cmd := newReconcileCmd()
	assert.NotNil(t, cmd.Flags().Lookup("dry-run"))
	assert.NotNil(t, cmd.Flags().Lookup("max-age-seconds"))
}
