package main

import (
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/spf13/cobra"
)

var createCmd = &cobra.Command{
	Use:   "create NAME",
	Short: "Create a new object",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		s := openStore()
		defer s.Close()
		f, err := s.Create(background(), args[0])
		checkErr(err)
		checkErr(f.Close(background()))
	},
}

var catCmd = &cobra.Command{
	Use:   "cat NAME",
	Short: "Print an object's full contents to stdout",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		s := openStore()
		defer s.Close()
		ctx := background()
		f, err := s.Open(ctx, args[0])
		checkErr(err)
		defer f.Close(ctx)

		buf := make([]byte, f.Length())
		if len(buf) > 0 {
			n, err := f.Read(ctx, buf)
			checkErr(err)
			buf = buf[:n]
		}
		os.Stdout.Write(buf)
	},
}

var writeAt int64

var writeCmd = &cobra.Command{
	Use:   "write NAME",
	Short: "Write stdin to an object at --at, creating it if absent",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		s := openStore()
		defer s.Close()
		ctx := background()

		f, err := s.Open(ctx, args[0])
		if err != nil {
			f, err = s.Create(ctx, args[0])
			checkErr(err)
		}
		defer f.Close(ctx)

		data, err := io.ReadAll(os.Stdin)
		checkErr(err)

		_, err = f.Seek(writeAt, 0)
		checkErr(err)
		_, err = f.Write(ctx, data)
		checkErr(err)
	},
}

var truncateCmd = &cobra.Command{
	Use:   "truncate NAME LENGTH",
	Short: "Set an object's logical length, zero-filling on extend",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		newLen, err := strconv.ParseUint(args[1], 10, 32)
		checkErr(err)

		s := openStore()
		defer s.Close()
		ctx := background()
		f, err := s.Open(ctx, args[0])
		checkErr(err)
		defer f.Close(ctx)

		checkErr(f.Truncate(ctx, uint32(newLen)))
	},
}

var renameOverwrite bool

var renameCmd = &cobra.Command{
	Use:   "rename OLD NEW",
	Short: "Rename an object",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		s := openStore()
		defer s.Close()
		checkErr(s.Rename(background(), args[0], args[1], renameOverwrite))
	},
}

var rmCmd = &cobra.Command{
	Use:   "rm NAME",
	Short: "Remove an object",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		s := openStore()
		defer s.Close()
		checkErr(s.Remove(background(), args[0]))
	},
}

var statCmd = &cobra.Command{
	Use:   "stat NAME",
	Short: "Print an object's length and meta generation counter",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		s := openStore()
		defer s.Close()
		ctx := background()
		f, err := s.Open(ctx, args[0])
		checkErr(err)
		defer f.Close(ctx)

		fmt.Printf("name:   %s\n", args[0])
		fmt.Printf("length: %d\n", f.Length())
		fmt.Printf("counter: %d\n", f.Handle().MetaCounter())
	},
}

func init() {
	rootCmd.AddCommand(createCmd, catCmd, writeCmd, truncateCmd, renameCmd, rmCmd, statCmd)

	writeCmd.Flags().Int64Var(&writeAt, "at", 0, "byte offset to write at")
	renameCmd.Flags().BoolVar(&renameOverwrite, "overwrite", false, "allow overwriting an existing destination name")
}
