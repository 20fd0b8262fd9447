package main

import (
	"context"
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/infinite-echoes/echoes/pkg/adapters/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Run the Model Context Protocol (MCP) server",
	Long: `Exposes turns as MCP tools over stdio so agents can play sessions,
inspect them and read the compiled graph.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		// stdout carries JSON-RPC
		log.SetOutput(os.Stderr)

		app, logger, err := openApp(context.Background(), cmd)
		if err != nil {
			return err
		}
		defer app.Close()

		srv := mcp.NewServer(app.Runner, mcp.WithLogger(logger))
		logger.Info("Starting echoes MCP server (stdio)")
		if err := srv.ServeStdio(); err != nil {
			logger.Error("MCP server execution failed", "err", err)
			return err
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}
