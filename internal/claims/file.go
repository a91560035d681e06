package claims

import (
	"context"
	"strconv"
	"strings"
	"unicode"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/fra-atlas/fra-dss/internal/fetcher"
	"github.com/fra-atlas/fra-dss/internal/model"
)

// column identifies a RawClaim field.
type column int

const (
	colID column = iota
	colName
	colAge
	colGender
	colState
	colDistrict
	colBlockTehsil
	colGramPanchayat
	colVillage
	colCategory
	colTaxPayer
	colClaimType
	colStatus
	colIncome
	colLandUse
	colGeo
	numColumns
)

// headerAliases maps folded header names to columns. Folding lowercases and
// drops everything but letters and digits, so "Claimant Name",
// "claimant_name" and "CLAIMANT-NAME" all match.
var headerAliases = map[string]column{
	"id":             colID,
	"claimid":        colID,
	"claimantname":   colName,
	"name":           colName,
	"age":            colAge,
	"gender":         colGender,
	"state":          colState,
	"district":       colDistrict,
	"blocktehsil":    colBlockTehsil,
	"block":          colBlockTehsil,
	"tehsil":         colBlockTehsil,
	"grampanchayat":  colGramPanchayat,
	"village":        colVillage,
	"category":       colCategory,
	"taxpayer":       colTaxPayer,
	"claimtype":      colClaimType,
	"statusofclaim":  colStatus,
	"claimstatus":    colStatus,
	"status":         colStatus,
	"annualincome":   colIncome,
	"income":         colIncome,
	"landuse":        colLandUse,
	"geocoordinates": colGeo,
	"coordinates":    colGeo,
}

var requiredColumns = map[column]string{
	colID:      "claim_id",
	colState:   "state",
	colVillage: "village",
	colGeo:     "geo_coordinates",
}

func foldHeader(h string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(h) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// FileSource reads claims from a CSV, TSV or XLSX export.
type FileSource struct {
	Path string

	// Rejected holds rows dropped because their claim id was unusable.
	Rejected []*model.MalformedRecordError
}

// NewFileSource creates a FileSource for path.
func NewFileSource(path string) *FileSource {
	return &FileSource{Path: path}
}

// RejectedRecords implements Rejecter.
func (s *FileSource) RejectedRecords() []*model.MalformedRecordError {
	return s.Rejected
}

// Claims implements Source. Rows are returned sorted by claim id; rows whose
// id is missing or not an integer are dropped and recorded in Rejected.
func (s *FileSource) Claims(ctx context.Context) ([]model.RawClaim, error) {
	tbl, err := fetcher.OpenTable(ctx, s.Path)
	if err != nil {
		return nil, eris.Wrapf(err, "claims: open %s", s.Path)
	}
	defer tbl.Close() //nolint:errcheck

	idx, err := mapHeader(tbl.Header)
	if err != nil {
		return nil, eris.Wrapf(err, "claims: %s", s.Path)
	}

	s.Rejected = nil
	var out []model.RawClaim
	line := 1
	for row := range tbl.Rows {
		line++
		get := func(c column) string {
			i := idx[c]
			if i < 0 || i >= len(row) {
				return ""
			}
			return row[i]
		}

		rawID := strings.TrimSpace(get(colID))
		id, err := strconv.ParseInt(rawID, 10, 64)
		if err != nil {
			// Exports from spreadsheets often carry ids as "12.0".
			f, ferr := strconv.ParseFloat(rawID, 64)
			if ferr != nil || f != float64(int64(f)) {
				rej := &model.MalformedRecordError{Field: "claim_id", Reason: "line " + strconv.Itoa(line) + ": " + strconv.Quote(rawID)}
				s.Rejected = append(s.Rejected, rej)
				zap.L().Debug("claims: dropping row with bad claim id", zap.Int("line", line), zap.String("claim_id", rawID))
				continue
			}
			id = int64(f)
		}

		out = append(out, model.RawClaim{
			ID:             id,
			Name:           get(colName),
			Age:            get(colAge),
			Gender:         get(colGender),
			State:          get(colState),
			District:       get(colDistrict),
			BlockTehsil:    get(colBlockTehsil),
			GramPanchayat:  get(colGramPanchayat),
			Village:        get(colVillage),
			Category:       get(colCategory),
			TaxPayer:       get(colTaxPayer),
			ClaimType:      get(colClaimType),
			Status:         get(colStatus),
			AnnualIncome:   get(colIncome),
			LandUse:        get(colLandUse),
			GeoCoordinates: get(colGeo),
		})
	}
	for err := range tbl.Errs {
		if err != nil {
			return nil, eris.Wrapf(err, "claims: read %s", s.Path)
		}
	}

	SortByID(out)

	zap.L().Info("claims: loaded from file",
		zap.String("path", s.Path),
		zap.Int("claims", len(out)),
		zap.Int("rejected", len(s.Rejected)),
	)
	return out, nil
}

// mapHeader resolves each column to its index in header, -1 when absent.
// The first matching header wins.
func mapHeader(header []string) ([numColumns]int, error) {
	var idx [numColumns]int
	for i := range idx {
		idx[i] = -1
	}
	for i, h := range header {
		c, ok := headerAliases[foldHeader(h)]
		if ok && idx[c] < 0 {
			idx[c] = i
		}
	}

	var missing []string
	for _, c := range []column{colID, colState, colVillage, colGeo} {
		if idx[c] < 0 {
			missing = append(missing, requiredColumns[c])
		}
	}
	if len(missing) > 0 {
		return idx, eris.Errorf("missing required columns: %s", strings.Join(missing, ", "))
	}
	return idx, nil
}
