// Package main provides the TCP and HTTP servers for KivDB.
package main

import (
	"encoding/json"

	"github.com/nickyhof/KivDB/db"
)

// Response types besides the statement types set, delete and get.
const (
	TypeAuth       = "auth"
	TypeCheckpoint = "checkpoint"
	TypeError      = "error"

	KindAuth    = "authError"
	KindCommand = "commandError"
)

// Response is one JSON line sent back for every request line.
type Response struct {
	Success bool            `json:"success"`
	Type    string          `json:"type"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *db.ErrorInfo   `json:"error,omitempty"`
}

// AuthResponse is the result of a successful AUTH command.
type AuthResponse struct {
	Authenticated bool   `json:"authenticated"`
	Identity      string `json:"identity"`
	ExpiresIn     int    `json:"expires_in,omitempty"`
}

// CheckpointResponse is the result of a CHECKPOINT command.
type CheckpointResponse struct {
	Id      string `json:"id"`
	Author  string `json:"author"`
	Message string `json:"message"`
}

// EncodeResponse serializes a Response to JSON with a newline.
func EncodeResponse(resp Response) ([]byte, error) {
	data, err := json.Marshal(resp)
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

func success(responseType string, result any) Response {
	data, err := json.Marshal(result)
	if err != nil {
		return failure(db.ErrorInfo{Kind: KindCommand, Code: "encoding", Detail: err.Error()})
	}
	return Response{Success: true, Type: responseType, Result: data}
}

func failure(info db.ErrorInfo) Response {
	return Response{Success: false, Type: TypeError, Error: &info}
}

func authError(code string, err error) Response {
	resp := failure(db.ErrorInfo{Kind: KindAuth, Code: code, Detail: err.Error()})
	resp.Type = TypeAuth
	return resp
}

// statementResponse converts the outcome of Engine.Execute.
func statementResponse(result db.Result, err error) Response {
	if err != nil {
		return failure(db.DescribeError(err))
	}
	return success(result.Type().String(), db.Envelope(result))
}
