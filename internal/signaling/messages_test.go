package signaling

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/campusdesk/reception-service/pkg/util/errorutil"
)

const testCallID = "6f1c3c1e-5a0d-4c1b-9a55-0f3f2d9b8e11"

func TestParseInbound(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    string
		invalid bool
	}{
		{"login", `{"type":"login","data":{"identifier":"ACS","password":"pw"}}`, MsgLogin, false},
		{"login without password", `{"type":"login","data":{"identifier":"ACS"}}`, "", true},
		{"submit", `{"type":"submit-call-request","data":{"target":"ACS","purpose":"hi"}}`, MsgSubmitCallRequest, false},
		{"respond", `{"type":"respond-to-request","data":{"requestId":"` + testCallID + `","accepted":false}}`, MsgRespondToRequest, false},
		{"respond without accepted", `{"type":"respond-to-request","data":{"requestId":"` + testCallID + `"}}`, "", true},
		{"offer", `{"type":"signal","data":{"kind":"offer","callId":"` + testCallID + `","payload":{"sdp":"x"}}}`, MsgSignal, false},
		{"offer without payload", `{"type":"signal","data":{"kind":"offer","callId":"` + testCallID + `"}}`, "", true},
		{"offer with null payload", `{"type":"signal","data":{"kind":"offer","callId":"` + testCallID + `","payload":null}}`, "", true},
		{"request-offer without payload", `{"type":"signal","data":{"kind":"request-offer","callId":"` + testCallID + `"}}`, MsgSignal, false},
		{"unknown kind", `{"type":"signal","data":{"kind":"bye","callId":"` + testCallID + `","payload":{}}}`, "", true},
		{"end", `{"type":"end-call","data":{"callId":"` + testCallID + `"}}`, MsgEndCall, false},
		{"ping", `{"type":"ping"}`, MsgPing, false},
		{"data of wrong shape", `{"type":"login","data":[1,2]}`, "", true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			msg, err := ParseInbound([]byte(tc.raw))
			if tc.invalid {
				require.Error(t, err)
				assert.True(t, apperrors.HasCode(err, apperrors.CodeValidation))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, msg.EventType())
		})
	}
}

func TestParseInboundKeepsPayloadVerbatim(t *testing.T) {
	msg, err := ParseInbound([]byte(`{"type":"signal","data":{"kind":"ice-candidate","callId":"` + testCallID + `","payload":{"candidate":"a","sdpMLineIndex":0}}}`))
	require.NoError(t, err)
	sig, ok := msg.(*SignalMessage)
	require.True(t, ok)
	assert.JSONEq(t, `{"candidate":"a","sdpMLineIndex":0}`, string(sig.Payload))
}

func TestEncodeFrameOmitsEmptyData(t *testing.T) {
	raw, err := encodeFrame(MsgPong, nil)
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"pong"}`, string(raw))
}
