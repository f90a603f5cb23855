package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestFakeCRM_ListThenUpdate(t *testing.T) {
	crm := newFakeCRM("SRC", 3)
	mux := http.NewServeMux()
	mux.HandleFunc("GET /rest/{user}/{token}/crm.deal.list.json", crm.list)
	mux.HandleFunc("POST /rest/{user}/{token}/crm.deal.update.json", crm.update)

	w := httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/rest/1/dev/crm.deal.update.json?id=2&fields%5BSTAGE_ID%5D=DST", nil))
	var upd map[string]any
	_ = json.Unmarshal(w.Body.Bytes(), &upd)
	if upd["result"] != true {
		t.Fatalf("expected result=true, got %s", w.Body.String())
	}

	w = httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/rest/1/dev/crm.deal.list.json?filter%5BSTAGE_ID%5D=SRC", nil))
	var list struct {
		Result []map[string]string `json:"result"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &list); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(list.Result) != 2 || list.Result[0]["ID"] != "1" || list.Result[1]["ID"] != "3" {
		t.Fatalf("unexpected list %+v", list.Result)
	}

	w = httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/rest/1/dev/crm.deal.update.json?id=99&fields%5BSTAGE_ID%5D=DST", nil))
	upd = nil
	_ = json.Unmarshal(w.Body.Bytes(), &upd)
	if _, ok := upd["result"]; ok {
		t.Fatalf("expected no result for unknown deal, got %s", w.Body.String())
	}
}
