// Package mcp exposes turns and the compiled graph as Model Context Protocol
// tools (play_turn, get_graph, get_session) and the echoes://graph resource.
package mcp
