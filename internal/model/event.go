package model

import "time"

// TxEvent is the export wire shape of a TransactionRecord.
type TxEvent struct {
	Hash     string    `json:"hash"`
	From     string    `json:"from"`
	To       string    `json:"to,omitempty"`
	Value    string    `json:"value"` // decimal wei
	Label    string    `json:"label"`
	Nonce    uint64    `json:"nonce"`
	Observed time.Time `json:"observed"`
}

func NewTxEvent(rec TransactionRecord) TxEvent {
	e := TxEvent{
		Hash:     rec.Hash.Hex(),
		From:     rec.From.Hex(),
		Label:    rec.Label,
		Nonce:    rec.Nonce,
		Observed: rec.Observed,
	}
	if rec.To != nil {
		e.To = rec.To.Hex()
	}
	if rec.Value != nil {
		e.Value = rec.Value.String()
	} else {
		e.Value = "0"
	}
	return e
}

// BlockEvent is the export wire shape of a BlockRecord. Transactions travel
// as their own TxEvents, so the block carries only a count.
type BlockEvent struct {
	Number     uint64    `json:"number"`
	Hash       string    `json:"hash"`
	ParentHash string    `json:"parent_hash"`
	Timestamp  uint64    `json:"timestamp"`
	TxCount    int       `json:"tx_count"`
	Observed   time.Time `json:"observed"`
}

func NewBlockEvent(rec BlockRecord) BlockEvent {
	return BlockEvent{
		Number:     rec.Number,
		Hash:       rec.Hash.Hex(),
		ParentHash: rec.ParentHash.Hex(),
		Timestamp:  rec.Timestamp,
		TxCount:    len(rec.Transactions),
		Observed:   rec.Observed,
	}
}
