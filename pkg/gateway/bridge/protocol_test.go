package bridge

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeCommand(t *testing.T) {
	tests := []struct {
		name     string
		frame    string
		wantCode string
		param    string
	}{
		{name: "send text", frame: `{"id":"1","cmd":"send_text","text":"hi"}`},
		{name: "blank text", frame: `{"cmd":"send_text","text":"  "}`, wantCode: "bad_request", param: "text"},
		{name: "audio base64", frame: `{"cmd":"send_audio","data":"AAEC"}`},
		{name: "mic audio missing data", frame: `{"cmd":"send_mic_audio"}`, wantCode: "bad_request", param: "data"},
		{name: "image bad base64", frame: `{"cmd":"send_image","data":"%%%"}`, wantCode: "bad_request"},
		{name: "search setting", frame: `{"cmd":"update_search_setting","enabled":false}`},
		{name: "search setting missing", frame: `{"cmd":"update_search_setting"}`, wantCode: "bad_request", param: "enabled"},
		{name: "initialize bare", frame: `{"cmd":"initialize"}`},
		{name: "missing cmd", frame: `{"id":"x"}`, wantCode: "bad_request", param: "cmd"},
		{name: "unknown cmd", frame: `{"cmd":"dance"}`, wantCode: "unsupported", param: "cmd"},
		{name: "not json", frame: `hello`, wantCode: "bad_request"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeCommand([]byte(tt.frame))
			if tt.wantCode == "" {
				require.NoError(t, err)
				return
			}
			var de *DecodeError
			require.True(t, errors.As(err, &de), "err=%v", err)
			assert.Equal(t, tt.wantCode, de.Code)
			assert.Equal(t, tt.param, de.Param)
		})
	}
}

func TestDecodeCommand_Fields(t *testing.T) {
	cmd, err := DecodeCommand([]byte(`{
		"id":"7",
		"cmd":" initialize ",
		"credentials":{"apiKey":"k"},
		"options":{"profile":"sales","customPrompt":"I sell boats"}
	}`))
	require.NoError(t, err)
	assert.Equal(t, CmdInitialize, cmd.Cmd)
	assert.Equal(t, "7", cmd.ID)
	require.NotNil(t, cmd.Credentials)
	assert.Equal(t, "k", cmd.Credentials.APIKey)
	require.NotNil(t, cmd.Options)
	assert.Equal(t, "sales", cmd.Options.Profile)

	cmd, err = DecodeCommand([]byte(`{"cmd":"send_audio","data":"AAEC"}`))
	require.NoError(t, err)
	assert.Equal(t, []byte{0, 1, 2}, cmd.Data)
}
