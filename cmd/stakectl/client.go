package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"stakeledger/cmd/internal/passphrase"
)

type rpcError struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

func (e *rpcError) Error() string {
	if len(e.Data) > 0 && string(e.Data) != "null" {
		var detail string
		if err := json.Unmarshal(e.Data, &detail); err == nil && detail != "" {
			return fmt.Sprintf("error from node (%d): %s: %s", e.Code, e.Message, detail)
		}
	}
	return fmt.Sprintf("error from node (%d): %s", e.Code, e.Message)
}

type rpcClient struct {
	endpoint string
	token    string
	http     *http.Client
}

func defaultEnv(endpoint string) *cliEnv {
	return &cliEnv{
		client: &rpcClient{
			endpoint: endpoint,
			token:    strings.TrimSpace(os.Getenv(rpcTokenEnv)),
			http:     &http.Client{Timeout: 15 * time.Second},
		},
		passphrase: passphrase.NewSource(keyPassEnv, "keystore").Get,
	}
}

// call posts a single JSON-RPC request and decodes the result into out when
// out is non-nil.
func (c *rpcClient) call(method string, param interface{}, requireAuth bool, out interface{}) (json.RawMessage, error) {
	params := []interface{}{}
	if param != nil {
		params = append(params, param)
	}
	payload, err := json.Marshal(map[string]interface{}{
		"jsonrpc": "2.0", "id": 1, "method": method, "params": params,
	})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequest(http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if requireAuth {
		if c.token == "" {
			return nil, fmt.Errorf("privileged RPC call requires %s to be set", rpcTokenEnv)
		}
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("POST %s: %w", c.endpoint, err)
	}
	defer resp.Body.Close()

	var rpcResp struct {
		Result json.RawMessage `json:"result"`
		Error  *rpcError       `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&rpcResp); err != nil {
		return nil, fmt.Errorf("failed to decode response from node (HTTP %d)", resp.StatusCode)
	}
	if rpcResp.Error != nil {
		return nil, rpcResp.Error
	}
	if out != nil {
		if err := json.Unmarshal(rpcResp.Result, out); err != nil {
			return nil, fmt.Errorf("decode %s result: %w", method, err)
		}
	}
	return rpcResp.Result, nil
}

func printJSONResult(w io.Writer, result json.RawMessage) {
	if len(result) == 0 {
		fmt.Fprintln(w, "No result.")
		return
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, result, "", "  "); err != nil {
		fmt.Fprintln(w, string(result))
		return
	}
	fmt.Fprintln(w, buf.String())
}
