package protocol

// Ack is the acknowledgement document returned to the gateway for every
// callback delivery. Anything other than the SUCCESS envelope means
// "retry later" to the gateway.
type Ack struct {
	ReturnCode string
	ReturnMsg  string
}

func AckSuccess() Ack {
	return Ack{ReturnCode: CodeSuccess, ReturnMsg: "OK"}
}

func AckFail(msg string) Ack {
	if msg == "" {
		msg = "FAIL"
	}
	return Ack{ReturnCode: CodeFail, ReturnMsg: msg}
}

func (a Ack) OK() bool { return a.ReturnCode == CodeSuccess }

func (a Ack) Encode() []byte {
	f := NewFields()
	f.Set(FieldReturnCode, a.ReturnCode)
	f.Set(FieldReturnMsg, a.ReturnMsg)
	return Encode(f)
}
