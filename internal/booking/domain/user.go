package domain

// Role is the explicit role of an acting user
type Role string

const (
	RoleSuperAdmin Role = "superadmin"
	RoleAdmin      Role = "admin"
	RoleCustomer   Role = "customer"
	RoleTranslator Role = "translator"
)

// IsAdmin reports whether the role may run admin workflows
func (r Role) IsAdmin() bool {
	return r == RoleAdmin || r == RoleSuperAdmin
}

// Translator types a job can be offered to
const (
	TranslatorTypeProfessional = "professional"
	TranslatorTypeRWS          = "rwstranslator"
	TranslatorTypeVolunteer    = "volunteer"
)

// Translator levels matched against the certification a customer asked for
const (
	LevelCertified       = "Certified"
	LevelCertifiedLaw    = "Certified with specialisation in law"
	LevelCertifiedHealth = "Certified with specialisation in health care"
	LevelLayman          = "Layman"
	LevelCourses         = "Read Translation courses"
)

// User is a customer, translator or administrator
type User struct {
	ID              int64  `db:"id" json:"id"`
	Name            string `db:"name" json:"name"`
	Email           string `db:"email" json:"email"`
	Phone           string `db:"phone" json:"phone,omitempty"`
	Mobile          string `db:"mobile" json:"mobile,omitempty"`
	Role            Role   `db:"role" json:"role"`
	TranslatorType  string `db:"translator_type" json:"translator_type,omitempty"`
	TranslatorLevel string `db:"translator_level" json:"translator_level,omitempty"`
	Gender          string `db:"gender" json:"gender,omitempty"`
	City            string `db:"city" json:"city,omitempty"`
	CustomerType    string `db:"customer_type" json:"customer_type,omitempty"`
	NoNotifications bool   `db:"not_get_notification" json:"-"`
	NoNightTimePush bool   `db:"not_get_nighttime" json:"-"`
}

// NotificationPreferences holds the push opt-outs of a user
type NotificationPreferences struct {
	NoNotifications bool `db:"not_get_notification"`
	NoNightTimePush bool `db:"not_get_nighttime"`
}

// TranslatorCriteria selects translators eligible for a job
type TranslatorCriteria struct {
	TranslatorType string
	LanguageID     int64
	Gender         *Gender
	Levels         []string
	CustomerID     int64
	ExcludeUserID  int64
}
