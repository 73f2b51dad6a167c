package ingest

import (
	"encoding/json"

	"github.com/google/uuid"

	"github.com/okian/powerwatch/internal/domain/model"
)

// batchNamespace scopes content-derived batch ids.
var batchNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://powerwatch/imports"))

// BatchID derives a stable id from a batch's date and rows, so the same
// file submitted twice maps to the same id.
func BatchID(date model.Date, rows []model.ImportRow) string {
	payload, _ := json.Marshal(struct {
		Date model.Date        `json:"date"`
		Rows []model.ImportRow `json:"rows"`
	}{date, rows})
	return uuid.NewSHA1(batchNamespace, payload).String()
}
