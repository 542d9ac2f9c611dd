package domain

import "time"

// Gender of a profile
type Gender string

const (
	GenderFemale  Gender = "female"
	GenderMale    Gender = "male"
	GenderUnknown Gender = "unknown"
)

// Date and time layouts used on the wire
const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04"
)

// Place is a structured birth location
type Place struct {
	Place     string   `json:"place"`
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
}

// Profile is a person that can be selected for a divination
type Profile struct {
	ID            int    `json:"profile_id"`
	Nickname      string `json:"nickname"`
	NameHiragana  string `json:"name_hiragana"`
	Gender        Gender `json:"gender,omitempty"`
	BirthDate     string `json:"birth_date,omitempty"`
	BirthTime     string `json:"birth_time,omitempty"`
	BirthLocation *Place `json:"birth_location_json,omitempty"`
	IsSelf        bool   `json:"is_self_flag"`
}

// ParsedBirthDate returns the birth date, or false when unset or malformed
func (p Profile) ParsedBirthDate() (time.Time, bool) {
	if p.BirthDate == "" {
		return time.Time{}, false
	}
	d, err := time.Parse(DateLayout, p.BirthDate)
	if err != nil {
		return time.Time{}, false
	}
	return d, true
}

// ProfileInput holds the fields supplied when creating a profile
type ProfileInput struct {
	Nickname      string `json:"nickname"`
	NameHiragana  string `json:"name_hiragana"`
	Gender        Gender `json:"gender,omitempty"`
	BirthDate     string `json:"birth_date,omitempty"`
	BirthTime     string `json:"birth_time,omitempty"`
	BirthLocation *Place `json:"birth_location_json,omitempty"`
	IsSelf        bool   `json:"is_self_flag"`
}

// ProfileUpdate is a partial profile update; nil fields are left untouched
type ProfileUpdate struct {
	Nickname      *string `json:"nickname,omitempty"`
	NameHiragana  *string `json:"name_hiragana,omitempty"`
	Gender        *Gender `json:"gender,omitempty"`
	BirthDate     *string `json:"birth_date,omitempty"`
	BirthTime     *string `json:"birth_time,omitempty"`
	BirthLocation *Place  `json:"birth_location_json,omitempty"`
}

// Apply merges the non-nil fields of u into p
func (u ProfileUpdate) Apply(p Profile) Profile {
	if u.Nickname != nil {
		p.Nickname = *u.Nickname
	}
	if u.NameHiragana != nil {
		p.NameHiragana = *u.NameHiragana
	}
	if u.Gender != nil {
		p.Gender = *u.Gender
	}
	if u.BirthDate != nil {
		p.BirthDate = *u.BirthDate
	}
	if u.BirthTime != nil {
		p.BirthTime = *u.BirthTime
	}
	if u.BirthLocation != nil {
		loc := *u.BirthLocation
		p.BirthLocation = &loc
	}
	return p
}

// FindProfile returns the profile with the given id
func FindProfile(profiles []Profile, id int) (Profile, bool) {
	for _, p := range profiles {
		if p.ID == id {
			return p, true
		}
	}
	return Profile{}, false
}
