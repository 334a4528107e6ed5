package protocol

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncode_PreservesInsertionOrderAndCDATA(t *testing.T) {
	f := NewFields()
	f.Set("zebra", "z")
	f.Set("appid", "wx123")
	f.Set("body", "Order <#1> & co")

	out := string(Encode(f))
	require.True(t, strings.HasPrefix(out, "<xml>"))
	require.True(t, strings.HasSuffix(out, "</xml>"))
	require.Contains(t, out, "<appid><![CDATA[wx123]]></appid>")
	// insertion order, not lexicographic
	require.Less(t, strings.Index(out, "<zebra>"), strings.Index(out, "<appid>"))
	// special characters survive inside CDATA
	require.Contains(t, out, "<![CDATA[Order <#1> & co]]>")
}

func TestDecode_RoundTrip(t *testing.T) {
	tests := []struct {
		name string
		m    map[string]string
	}{
		{"single field", map[string]string{"return_code": "SUCCESS"}},
		{"typical notify", map[string]string{
			"return_code":  "SUCCESS",
			"result_code":  "SUCCESS",
			"out_trade_no": "pay_0123456789abcdef",
			"total_fee":    "10000",
			"nonce_str":    "5K8264ILTKCH16CQ2502SI8ZNMTM67VS",
		}},
		{"values with markup", map[string]string{"body": "a<b>&c"}},
		{"empty value", map[string]string{"err_code": ""}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Decode(Encode(FieldsFromMap(tt.m)))
			require.Equal(t, tt.m, got.Map())
		})
	}
}

func TestDecode_MalformedYieldsEmpty(t *testing.T) {
	tests := []struct {
		name string
		in   string
	}{
		{"empty input", ""},
		{"not xml", "return_code=SUCCESS"},
		{"unclosed root", "<xml><a>1</a>"},
		{"mismatched tags", "<xml><a>1</b></xml>"},
		{"truncated", "<xml><out_trade_no><![CDATA[pay_1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Decode([]byte(tt.in))
			require.NotNil(t, got)
			assert.Zero(t, got.Len(), "malformed input must yield an empty map, got %v", got.Map())
		})
	}
}

func TestDecode_SkipsNestedElements(t *testing.T) {
	in := "<xml><a>1</a><nested><inner>x</inner></nested><b>2</b></xml>"
	got := Decode([]byte(in))
	require.Equal(t, "1", got.Get("a"))
	require.Equal(t, "2", got.Get("b"))
	require.False(t, got.Has("inner"))
	require.False(t, got.Has("nested"))
}

func TestSign_KnownVector(t *testing.T) {
	// worked example: md5("a=1&b=2&key=secret") upper-cased
	f := NewFields()
	f.Set("b", "2")
	f.Set("a", "1")
	require.Equal(t, "9F565CCD686CFA5DC3B06B3A89E4E3AD", Sign(f, "secret"))
}

func TestSign_ExcludesSignAndEmptyFields(t *testing.T) {
	base := NewFields()
	base.Set("mch_id", "1900000109")
	base.Set("out_trade_no", "pay_aabbccdd00112233")

	withNoise := NewFields()
	withNoise.Set("mch_id", "1900000109")
	withNoise.Set("out_trade_no", "pay_aabbccdd00112233")
	withNoise.Set("sign", "SHOULD_BE_IGNORED")
	withNoise.Set("err_code", "")

	require.Equal(t, Sign(base, "k"), Sign(withNoise, "k"))
}

func TestVerify_RoundTripAndTamper(t *testing.T) {
	f := FieldsFromMap(map[string]string{
		"appid":        "wx2421b1c4370ec43b",
		"mch_id":       "10000100",
		"nonce_str":    "IITRi8Iabbblz1Jc",
		"out_trade_no": "pay_0123456789abcdef",
		"total_fee":    "10000",
	})
	const key = "192006250b4c09247ec02edce69f6a2d"

	sig := Sign(f, key)
	require.True(t, Verify(f, sig, key))
	// lower-case presentation of the same signature still verifies
	require.True(t, Verify(f, strings.ToLower(sig), key))

	// flipping any character must break verification
	for i := range sig {
		flipped := []byte(sig)
		if flipped[i] == 'A' {
			flipped[i] = 'B'
		} else {
			flipped[i] = 'A'
		}
		if string(flipped) == sig {
			continue
		}
		assert.False(t, Verify(f, string(flipped), key), "flipped index %d", i)
	}

	require.False(t, Verify(f, "", key))
	require.False(t, Verify(f, sig, "wrong-key"))
}

func TestRestrict_DropsUnknownFields(t *testing.T) {
	f := FieldsFromMap(map[string]string{
		"return_code":  "SUCCESS",
		"out_trade_no": "pay_1",
		"evil_field":   "x",
	})
	got := f.Restrict(MessagePaymentNotify)
	require.True(t, got.Has("return_code"))
	require.True(t, got.Has("out_trade_no"))
	require.False(t, got.Has("evil_field"))
}

func TestAck_Encode(t *testing.T) {
	ok := Decode(AckSuccess().Encode())
	require.Equal(t, "SUCCESS", ok.Get("return_code"))
	require.Equal(t, "OK", ok.Get("return_msg"))

	fail := Decode(AckFail("invalid signature").Encode())
	require.Equal(t, "FAIL", fail.Get("return_code"))
	require.Equal(t, "invalid signature", fail.Get("return_msg"))
}
