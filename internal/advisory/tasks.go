package advisory

import (
	"context"
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"strings"
)

// Assessment is the non-binding result of a credential or document review.
// Score is nil when the collaborator was unavailable.
type Assessment struct {
	Score           *int     `json:"score"`
	Analysis        string   `json:"analysis"`
	Recommendations []string `json:"recommendations"`
	Flags           []string `json:"flags"`
	Unavailable     bool     `json:"unavailable,omitempty"`
	GeneratedAt     string   `json:"generated_at,omitempty"`
}

// UnavailableAssessment is stored when no analysis could be produced.
func UnavailableAssessment() *Assessment {
	return &Assessment{Analysis: UnavailableNote, Recommendations: []string{}, Flags: []string{}, Unavailable: true}
}

// CredentialProfile is what the reviewer model sees of a doctor applicant.
type CredentialProfile struct {
	FullName                string
	Specialization          string
	Qualification           string
	ExperienceYears         int
	CurrentEmployer         string
	LicenseNumber           string
	LicenseIssuingAuthority string
	LicenseExpiry           string
	HasLicenseDocument      bool
	HasDegreeCertificate    bool
	AdditionalCertificates  int
}

// ClinicProfile is what the reviewer model sees of a clinic applicant.
type ClinicProfile struct {
	ClinicName            string
	BusinessType          string
	RegistrationNumber    string
	GSTNumber             string
	EstablishedYear       int
	City                  string
	State                 string
	TotalPhysiotherapists int
	TreatmentRooms        int
	ServicesOffered       []string
	Equipment             []string
	Documents             map[string]bool
}

// InterviewQuestion is one generated question for the human interviewer.
type InterviewQuestion struct {
	Category      string `json:"category"`
	Question      string `json:"question"`
	WhatToLookFor string `json:"what_to_look_for,omitempty"`
	Difficulty    string `json:"difficulty,omitempty"`
}

// InterviewCategories are requested in this order.
var InterviewCategories = []string{"clinical_knowledge", "patient_handling", "ethics_compliance", "platform_fit", "scenario_based"}

// DraftQuizQuestion mirrors a training module quiz entry.
type DraftQuizQuestion struct {
	Question      string   `json:"question"`
	Options       []string `json:"options"`
	CorrectAnswer int      `json:"correct_answer"`
	Explanation   string   `json:"explanation,omitempty"`
}

// ModuleDraft is generated training content for an admin to edit before publishing.
type ModuleDraft struct {
	Title           string              `json:"title"`
	Description     string              `json:"description"`
	Content         string              `json:"content"`
	DurationMinutes int                 `json:"duration_minutes"`
	Quiz            []DraftQuizQuestion `json:"quiz_questions"`
}

const reviewerSystem = `You are a credential verification assistant for NovaCare 24/7, a physiotherapy clinic network in India.
You assist a human reviewer; your output is advisory only.
Reply with a single JSON object and nothing else.`

type assessmentReply struct {
	Score           json.Number `json:"score"`
	Analysis        string      `json:"analysis"`
	Recommendations []string    `json:"recommendations"`
	Flags           []string    `json:"flags"`
}

func (a *Advisor) assess(ctx context.Context, task, prompt string) (*Assessment, error) {
	var reply assessmentReply
	if err := a.complete(ctx, task, reviewerSystem, prompt, 1200, &reply); err != nil {
		return nil, err
	}
	s, err := score(reply.Score)
	if err != nil {
		a.logger.Warn("advisory reply had unusable score", "task", task, "error", err)
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return &Assessment{
		Score:           &s,
		Analysis:        strings.TrimSpace(reply.Analysis),
		Recommendations: cleanList(reply.Recommendations),
		Flags:           cleanList(reply.Flags),
		GeneratedAt:     a.now().UTC().Format("2006-01-02T15:04:05Z"),
	}, nil
}

// AssessCredentials scores a doctor's credentials 0-100.
func (a *Advisor) AssessCredentials(ctx context.Context, p CredentialProfile) (*Assessment, error) {
	prompt := fmt.Sprintf(`Assess this physiotherapist application for completeness and plausibility.

Name: %s
Specialization: %s
Qualification: %s
Experience: %d years
Current employer: %s
License number: %s
Issuing authority: %s
License expiry: %s
License document uploaded: %t
Degree certificate uploaded: %t
Additional certificates: %d

Return JSON: {"score": 0-100, "analysis": "...", "recommendations": ["..."], "flags": ["..."]}`,
		p.FullName, p.Specialization, p.Qualification, p.ExperienceYears, orNone(p.CurrentEmployer),
		orNone(p.LicenseNumber), orNone(p.LicenseIssuingAuthority), orNone(p.LicenseExpiry),
		p.HasLicenseDocument, p.HasDegreeCertificate, p.AdditionalCertificates)
	return a.assess(ctx, "credentials", prompt)
}

// ReviewClinicDocuments scores a clinic's documentation 0-100.
func (a *Advisor) ReviewClinicDocuments(ctx context.Context, p ClinicProfile) (*Assessment, error) {
	var docs []string
	for _, name := range slices.Sorted(maps.Keys(p.Documents)) {
		docs = append(docs, fmt.Sprintf("%s: %t", name, p.Documents[name]))
	}
	prompt := fmt.Sprintf(`Review this clinic partnership application's documentation.

Clinic: %s (%s)
Registration number: %s
GST number: %s
Established: %d
Location: %s, %s
Physiotherapists: %d
Treatment rooms: %d
Services: %s
Equipment: %s
Documents provided:
%s

Return JSON: {"score": 0-100, "analysis": "...", "recommendations": ["..."], "flags": ["..."]}`,
		p.ClinicName, orNone(p.BusinessType), orNone(p.RegistrationNumber), orNone(p.GSTNumber), p.EstablishedYear,
		p.City, p.State, p.TotalPhysiotherapists, p.TreatmentRooms,
		orNone(strings.Join(p.ServicesOffered, ", ")), orNone(strings.Join(p.Equipment, ", ")), strings.Join(docs, "\n"))
	return a.assess(ctx, "clinic_documents", prompt)
}

// InterviewQuestions generates categorized questions for a candidate.
func (a *Advisor) InterviewQuestions(ctx context.Context, p CredentialProfile) ([]InterviewQuestion, error) {
	prompt := fmt.Sprintf(`Generate interview questions for a physiotherapist candidate.

Specialization: %s
Qualification: %s
Experience: %d years

Return JSON with these keys, each an array of 2-3 objects {"question": "...", "what_to_look_for": "...", "difficulty": "easy|medium|hard"}:
%s`, p.Specialization, p.Qualification, p.ExperienceYears, strings.Join(InterviewCategories, ", "))

	var reply map[string][]InterviewQuestion
	if err := a.complete(ctx, "interview_questions", reviewerSystem, prompt, 2000, &reply); err != nil {
		return nil, err
	}
	out := []InterviewQuestion{}
	for _, category := range InterviewCategories {
		for _, q := range reply[category] {
			if strings.TrimSpace(q.Question) == "" {
				continue
			}
			q.Category = category
			out = append(out, q)
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: no questions returned", ErrUnavailable)
	}
	return out, nil
}

// TrainingModuleDraft drafts a training module on topic.
func (a *Advisor) TrainingModuleDraft(ctx context.Context, topic, specialization string) (*ModuleDraft, error) {
	prompt := fmt.Sprintf(`Draft an onboarding training module for NovaCare physiotherapists.

Topic: %s
Audience specialization: %s

Return JSON: {"title": "...", "description": "...", "content": "markdown", "duration_minutes": 30,
"quiz_questions": [{"question": "...", "options": ["a","b","c","d"], "correct_answer": 0, "explanation": "..."}]}`,
		topic, orNone(specialization))

	var draft ModuleDraft
	if err := a.complete(ctx, "training_module", reviewerSystem, prompt, 3000, &draft); err != nil {
		return nil, err
	}
	if strings.TrimSpace(draft.Title) == "" || strings.TrimSpace(draft.Content) == "" {
		return nil, fmt.Errorf("%w: draft missing title or content", ErrUnavailable)
	}
	quiz := draft.Quiz[:0]
	for _, q := range draft.Quiz {
		if q.CorrectAnswer >= 0 && q.CorrectAnswer < len(q.Options) {
			quiz = append(quiz, q)
		}
	}
	draft.Quiz = quiz
	if draft.DurationMinutes <= 0 {
		draft.DurationMinutes = 30
	}
	return &draft, nil
}

func orNone(s string) string {
	if strings.TrimSpace(s) == "" {
		return "not provided"
	}
	return s
}
