package booking

import "github.com/cuongbtq/booking-be/internal/booking/domain"

// translatorType maps the job type to the pool of translators it is offered to
func translatorType(t domain.JobType) string {
	switch t {
	case domain.JobTypePaid:
		return domain.TranslatorTypeProfessional
	case domain.JobTypeRWS:
		return domain.TranslatorTypeRWS
	case domain.JobTypeUnpaid:
		return domain.TranslatorTypeVolunteer
	}
	return ""
}

// translatorLevels lists the levels that satisfy the certification a customer
// asked for. No certification means any level.
func translatorLevels(c *domain.Certification) []string {
	if c == nil {
		return nil
	}

	switch *c {
	case domain.CertifiedYes, domain.CertifiedBoth:
		return []string{domain.LevelCertified, domain.LevelCertifiedLaw, domain.LevelCertifiedHealth}
	case domain.CertifiedLaw, domain.CertifiedNLaw:
		return []string{domain.LevelCertifiedLaw}
	case domain.CertifiedHealth, domain.CertifiedNHealth:
		return []string{domain.LevelCertifiedHealth}
	case domain.CertifiedNormal:
		return []string{domain.LevelLayman, domain.LevelCourses}
	}
	return nil
}

func criteriaFor(job *domain.Job, exclude int64) domain.TranslatorCriteria {
	return domain.TranslatorCriteria{
		TranslatorType: translatorType(job.JobType),
		LanguageID:     job.FromLanguageID,
		Gender:         job.Gender,
		Levels:         translatorLevels(job.Certified),
		CustomerID:     job.UserID,
		ExcludeUserID:  exclude,
	}
}
