//go:build !linux

package main

import "github.com/spf13/cobra"

func newEvdevCommand(*cli) *cobra.Command { return nil }
