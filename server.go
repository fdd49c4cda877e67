package tripmesh

import (
	"context"
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
)

const Version = "1.0.0"

// NewServer exposes the assistant over MCP: travel_chat runs the full
// pipeline, search_context returns the fused retrieval set, session_history
// reads back a conversation.
func NewServer(client *Client) *mcpserver.MCPServer {
	server := mcpserver.NewMCPServer("TripMesh Travel Assistant", Version)

	server.AddTool(mcp.Tool{
		Name:        "travel_chat",
		Description: "Answer a travel question using hybrid retrieval over the travel knowledge base. Pass session_id to continue a conversation; omit it to start a new one.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"query": map[string]interface{}{
					"type":        "string",
					"description": "The traveler's question",
				},
				"session_id": map[string]interface{}{
					"type":        "string",
					"description": "Conversation session id from a previous travel_chat call",
				},
			},
			Required: []string{"query"},
		},
	}, chatHandler(client))

	server.AddTool(mcp.Tool{
		Name:        "search_context",
		Description: "Run hybrid retrieval only and return the ranked, fused context candidates as JSON, without generating an answer.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"query": map[string]interface{}{
					"type":        "string",
					"description": "Search query",
				},
			},
			Required: []string{"query"},
		},
	}, searchHandler(client))

	server.AddTool(mcp.Tool{
		Name:        "session_history",
		Description: "Return the turns of a conversation session.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": map[string]interface{}{
					"type":        "string",
					"description": "Session id to read",
				},
			},
			Required: []string{"session_id"},
		},
	}, historyHandler(client))

	return server
}

func chatHandler(client *Client) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		query, err := request.RequireString("query")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		sessionID := request.GetString("session_id", "")
		if sessionID == "" {
			sess, serr := client.Sessions().Create(ctx)
			if serr != nil {
				return mcp.NewToolResultError("create session: " + serr.Error()), nil
			}
			sessionID = sess.ID
		}

		answer, err := client.Chat(ctx, query, sessionID)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		payload, _ := json.Marshal(map[string]interface{}{
			"answer":     answer.Text,
			"session_id": sessionID,
			"mode":       answer.Mode.String(),
			"cache_hit":  answer.CacheHit,
			"query_id":   answer.QueryID,
		})
		return mcp.NewToolResultText(string(payload)), nil
	}
}

func searchHandler(client *Client) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		query, err := request.RequireString("query")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		fused, err := client.Search(ctx, query)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		payload, merr := json.Marshal(fused)
		if merr != nil {
			return mcp.NewToolResultError(merr.Error()), nil
		}
		return mcp.NewToolResultText(string(payload)), nil
	}
}

func historyHandler(client *Client) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		sessionID, err := request.RequireString("session_id")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		sess, ok := client.Sessions().Get(ctx, sessionID)
		if !ok {
			return mcp.NewToolResultError("session not found: " + sessionID), nil
		}
		payload, merr := json.Marshal(sess)
		if merr != nil {
			return mcp.NewToolResultError(merr.Error()), nil
		}
		return mcp.NewToolResultText(string(payload)), nil
	}
}
