package model

// Role is the fixed role of the logged-in actor for the session lifetime.
type Role string

const (
	RoleAdmin      Role = "ROLE_ADMIN"
	RoleDispatcher Role = "ROLE_DISPATCHER"
	RoleUnit       Role = "ROLE_UNIT"
)

// UnitStatus is set by the service only; the client never writes it.
type UnitStatus string

const (
	UnitSafe     UnitStatus = "SAFE"
	UnitInAction UnitStatus = "IN_ACTION"
)

type Unit struct {
	ID       int64      `json:"id"`
	CallSign string     `json:"callSign"`
	Lat      float64    `json:"lat"`
	Lon      float64    `json:"lon"`
	Status   UnitStatus `json:"status"`
}

// Incident carries its coordinates as strings, exactly as the service
// returns them. Parsing happens at the projection boundary only.
type Incident struct {
	ID           int64  `json:"id"`
	Description  string `json:"description"`
	IncidentType string `json:"incidentType"`
	IncidentTime string `json:"incidentTime"`
	Address      string `json:"address"`
	Lat          string `json:"lat"`
	Lon          string `json:"lon"`
	Dispatcher   string `json:"dispatcher"`
	FinalReport  string `json:"finalReport"`
}

// Resolved reports whether a final report has been filed.
func (i Incident) Resolved() bool { return i.FinalReport != "" }

// Relation is the canonical form of one record from the assignment feed.
// The wire shape (flat vs nested ids, optional active flag) is normalized
// away at the fetcher boundary.
type Relation struct {
	UnitID     int64
	IncidentID int64
	Active     bool
}

type Officer struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type Record struct {
	ID       int64  `json:"id"`
	FullName string `json:"fullName"`
	Address  string `json:"address"`
}

type ActiveUser struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Role     Role   `json:"role"`
}

// IncidentDraft is the payload for creating a new incident.
type IncidentDraft struct {
	Description  string `json:"description"`
	Address      string `json:"address"`
	IncidentType string `json:"incidentType"`
}

// IncidentTypes is the fixed category list. Categories are identified by
// name; the numeric ids seen on the wire are not unique and are never used
// as lookup keys.
var IncidentTypes = []string{
	"BURGLARY",
	"ROBBERY",
	"DOMESTIC_VIOLENCE",
	"ASSAULT",
	"HOMICIDE",
	"HARRASMENT",
	"EMERGENCY_ALARM",
}

// ValidIncidentType checks a category name against the fixed list.
func ValidIncidentType(name string) bool {
	for _, t := range IncidentTypes {
		if t == name {
			return true
		}
	}
	return false
}
