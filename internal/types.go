package internal

// DpgReference is one decision code found in a solution or act-history text.
type DpgReference struct {
	Code    string
	RawDate *string
	ISODate *string
	Year    *int
}

type DpgKey struct {
	Code    string
	ISODate string
}

// Key is the uniqueness key (code, ISO date); an absent date keys as "".
func (d DpgReference) Key() DpgKey {
	k := DpgKey{Code: d.Code}
	if d.ISODate != nil {
		k.ISODate = *d.ISODate
	}
	return k
}

type AddressEntry struct {
	Contemporary *string
	Historical   *string
	PropertyType *string
}

// CaseRecord is one dataset row: case-level fields repeated for each address entry.
type CaseRecord struct {
	CaseNumber         *string
	CaseDate           *string
	Requesters         []string
	NotificationNumber *string
	NotificationDate   *string
	Address            AddressEntry
	Solution           *string
	ActHistory         *string
	MultipleAddresses  bool
}

type GeocodeStatus string

const (
	GeocodeFound    GeocodeStatus = "found"
	GeocodeNotFound GeocodeStatus = "not_found"
	GeocodeError    GeocodeStatus = "error"
	GeocodeEmpty    GeocodeStatus = "empty"
	GeocodePending  GeocodeStatus = "pending"
)

type GeocodeResult struct {
	Latitude    float64
	Longitude   float64
	DisplayName string
}

type SolutionGroup string

const (
	GroupRestitution  SolutionGroup = "Restituire"
	GroupCompensation SolutionGroup = "Compensare/Despagubiri"
	GroupRejection    SolutionGroup = "Respins/Negativ"
	GroupRevocation   SolutionGroup = "Revocare/Anulare"
	GroupReferral     SolutionGroup = "Declinare/Transfer"
)

type DownloadTask struct {
	CaseNumber string
	Code       string
	ISODate    string
	Year       int
}

type DownloadStatus string

const (
	DownloadSaved    DownloadStatus = "saved"
	DownloadNoPDF    DownloadStatus = "no_pdf"
	DownloadNotFound DownloadStatus = "not_found"
	DownloadError    DownloadStatus = "error"
)

type StoredCase struct {
	ID         int64
	SourceFile string
	Ordinal    int
	Record     CaseRecord
}

type GeocodeRow struct {
	CaseID    int64
	Query     string
	Status    GeocodeStatus
	Latitude  *float64
	Longitude *float64
	Detail    *string
}

// ExportRow is the flattened output shape; absent values stay nil until serialization.
type ExportRow struct {
	CaseNumber         *string
	CaseDate           *string
	Requesters         []string
	NotificationNumber *string
	NotificationDate   *string
	Contemporary       *string
	Historical         *string
	PropertyType       *string
	Solution           *string
	ActHistory         *string
	MultipleAddresses  bool
	Latitude           *float64
	Longitude          *float64
	SolutionString     *string
	SolutionGroup      *string
	SolutionYear       *int
	PDFNames           []string
	PDFValid           bool
}
