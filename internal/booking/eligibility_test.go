package booking

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/cuongbtq/booking-be/internal/booking/domain"
)

func TestTranslatorType(t *testing.T) {
	assert.Equal(t, domain.TranslatorTypeProfessional, translatorType(domain.JobTypePaid))
	assert.Equal(t, domain.TranslatorTypeRWS, translatorType(domain.JobTypeRWS))
	assert.Equal(t, domain.TranslatorTypeVolunteer, translatorType(domain.JobTypeUnpaid))
	assert.Empty(t, translatorType("barter"))
}

func TestTranslatorLevels(t *testing.T) {
	allCertified := []string{domain.LevelCertified, domain.LevelCertifiedLaw, domain.LevelCertifiedHealth}

	tests := []struct {
		name      string
		certified *domain.Certification
		want      []string
	}{
		{name: "no preference", certified: nil, want: nil},
		{name: "yes", certified: ptr(domain.CertifiedYes), want: allCertified},
		{name: "both", certified: ptr(domain.CertifiedBoth), want: allCertified},
		{name: "law", certified: ptr(domain.CertifiedLaw), want: []string{domain.LevelCertifiedLaw}},
		{name: "n_law", certified: ptr(domain.CertifiedNLaw), want: []string{domain.LevelCertifiedLaw}},
		{name: "health", certified: ptr(domain.CertifiedHealth), want: []string{domain.LevelCertifiedHealth}},
		{name: "n_health", certified: ptr(domain.CertifiedNHealth), want: []string{domain.LevelCertifiedHealth}},
		{name: "normal", certified: ptr(domain.CertifiedNormal), want: []string{domain.LevelLayman, domain.LevelCourses}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, translatorLevels(tt.certified))
		})
	}
}

func TestJobFor(t *testing.T) {
	job := &domain.Job{Gender: ptr(domain.GenderFemale), Certified: ptr(domain.CertifiedBoth)}
	assert.Equal(t, []string{"Kvinna", "normal", "certified"}, jobFor(job))

	job = &domain.Job{Gender: ptr(domain.GenderMale), Certified: ptr(domain.CertifiedHealth)}
	assert.Equal(t, []string{"Man", "health"}, jobFor(job))

	assert.Equal(t, []string{}, jobFor(&domain.Job{}))
}
