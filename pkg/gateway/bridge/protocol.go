package bridge

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/vango-go/vai-copilot/pkg/core/live"
)

// Command names accepted from the UI.
const (
	CmdInitialize          = "initialize"
	CmdSendText            = "send_text"
	CmdSendAudio           = "send_audio"
	CmdSendMicAudio        = "send_mic_audio"
	CmdSendImage           = "send_image"
	CmdStartCapture        = "start_capture"
	CmdStopCapture         = "stop_capture"
	CmdClose               = "close"
	CmdGetCurrentSession   = "get_current_session"
	CmdStartNewSession     = "start_new_session"
	CmdUpdateSearchSetting = "update_search_setting"
	CmdGetState            = "get_state"
)

// Frame types sent to the UI besides notifications.
const (
	FrameResult = "result"
	FrameError  = "error"
)

type DecodeError struct {
	Code    string
	Message string
	Param   string
}

func (e *DecodeError) Error() string {
	if e == nil {
		return ""
	}
	if strings.TrimSpace(e.Param) == "" {
		return e.Message
	}
	return fmt.Sprintf("%s (%s)", e.Message, e.Param)
}

func badRequest(message, param string) *DecodeError {
	return &DecodeError{Code: "bad_request", Message: message, Param: param}
}

func unsupported(message, param string) *DecodeError {
	return &DecodeError{Code: "unsupported", Message: message, Param: param}
}

// InitOptions are the per-session overrides sent with initialize. Empty
// fields fall back to the bridge defaults.
type InitOptions struct {
	Model        string `json:"model,omitempty"`
	LanguageCode string `json:"languageCode,omitempty"`
	CustomPrompt string `json:"customPrompt,omitempty"`
	Profile      string `json:"profile,omitempty"`
}

// Command is one decoded client frame. Data carries the decoded base64
// payload of the send_audio, send_mic_audio and send_image commands.
type Command struct {
	ID          string            `json:"id,omitempty"`
	Cmd         string            `json:"cmd"`
	Text        string            `json:"text,omitempty"`
	Data        []byte            `json:"data,omitempty"`
	Credentials *live.Credentials `json:"credentials,omitempty"`
	Options     *InitOptions      `json:"options,omitempty"`
	Enabled     *bool             `json:"enabled,omitempty"`
}

// DecodeCommand parses and validates a client text frame.
func DecodeCommand(data []byte) (Command, error) {
	var cmd Command
	if err := json.Unmarshal(data, &cmd); err != nil {
		return Command{}, badRequest("invalid json frame", "")
	}
	cmd.Cmd = strings.TrimSpace(cmd.Cmd)

	switch cmd.Cmd {
	case "":
		return cmd, badRequest("cmd is required", "cmd")
	case CmdSendText:
		if strings.TrimSpace(cmd.Text) == "" {
			return cmd, badRequest("text is required", "text")
		}
	case CmdSendAudio, CmdSendMicAudio, CmdSendImage:
		if len(cmd.Data) == 0 {
			return cmd, badRequest("data is required", "data")
		}
	case CmdUpdateSearchSetting:
		if cmd.Enabled == nil {
			return cmd, badRequest("enabled is required", "enabled")
		}
	case CmdInitialize, CmdStartCapture, CmdStopCapture, CmdClose,
		CmdGetCurrentSession, CmdStartNewSession, CmdGetState:
	default:
		return cmd, unsupported("unknown command", "cmd")
	}
	return cmd, nil
}

// ResultFrame answers one command.
type ResultFrame struct {
	Type      string `json:"type"`
	ID        string `json:"id,omitempty"`
	Cmd       string `json:"cmd"`
	Success   bool   `json:"success"`
	Error     string `json:"error,omitempty"`
	ErrorType string `json:"errorType,omitempty"`
	SessionID string `json:"sessionId,omitempty"`
	State     string `json:"state,omitempty"`
	Enabled   *bool  `json:"enabled,omitempty"`
}

func resultFrom(cmd Command, res live.Result) ResultFrame {
	return ResultFrame{
		Type:      FrameResult,
		ID:        cmd.ID,
		Cmd:       cmd.Cmd,
		Success:   res.Success,
		Error:     res.Error,
		ErrorType: string(res.Type),
	}
}

// ErrorFrame reports a frame that could not be decoded.
type ErrorFrame struct {
	Type    string `json:"type"`
	ID      string `json:"id,omitempty"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Param   string `json:"param,omitempty"`
}
