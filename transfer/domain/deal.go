package domain

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// DealID é o identificador opaco de um deal no CRM.
//
// O CRM pode devolver o ID como string ("42") ou número (42); guardamos
// sempre a forma textual. null e string vazia são rejeitados.
type DealID string

var errEmptyDealID = errors.New("deal id: empty or null")

func (id *DealID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		return errEmptyDealID
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		if s == "" {
			return errEmptyDealID
		}
		*id = DealID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("deal id: %w", err)
	}
	*id = DealID(n.String())
	return nil
}

// Deal é o mínimo que o passe precisa saber de um deal.
type Deal struct {
	ID      DealID `json:"ID"`
	StageID string `json:"STAGE_ID,omitempty"`
}
