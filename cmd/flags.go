package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Flag helpers panic on lookup errors: every flag is defined in init(), so a
// failure is a programming bug, not user input.

func mustGetBool(cmd *cobra.Command, name string) bool {
	val, err := cmd.Flags().GetBool(name)
	if err != nil {
		panic(fmt.Sprintf("flag error for --%s: %v", name, err))
	}
	return val
}

func mustGetInt(cmd *cobra.Command, name string) int {
	val, err := cmd.Flags().GetInt(name)
	if err != nil {
		panic(fmt.Sprintf("flag error for --%s: %v", name, err))
	}
	return val
}

func mustGetString(cmd *cobra.Command, name string) string {
	val, err := cmd.Flags().GetString(name)
	if err != nil {
		panic(fmt.Sprintf("flag error for --%s: %v", name, err))
	}
	return val
}

// changed returns a pointer to the flag value when the user set the flag and
// nil otherwise, so partial updates leave unset settings alone.
func changed[T any](cmd *cobra.Command, name string, get func(*cobra.Command, string) T) *T {
	if !cmd.Flags().Changed(name) {
		return nil
	}
	v := get(cmd, name)
	return &v
}
