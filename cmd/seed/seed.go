package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/jackc/pgx/v5"

	"github.com/meesalavenugopal/novacare247/internal/accounts"
	"github.com/meesalavenugopal/novacare247/internal/catalog"
	"github.com/meesalavenugopal/novacare247/internal/db"
	"github.com/meesalavenugopal/novacare247/internal/slug"
)

var specializations = []string{
	"Orthopedic Physiotherapy",
	"Sports Physiotherapy",
	"Neurological Physiotherapy",
	"Pediatric Physiotherapy",
	"Geriatric Physiotherapy",
	"Cardiopulmonary Rehabilitation",
}

var qualifications = []string{"BPT", "MPT (Ortho)", "MPT (Sports)", "MPT (Neuro)", "PhD Physiotherapy"}

var cities = []struct{ City, State string }{
	{"Hyderabad", "Telangana"},
	{"Bengaluru", "Karnataka"},
	{"Chennai", "Tamil Nadu"},
	{"Pune", "Maharashtra"},
	{"Visakhapatnam", "Andhra Pradesh"},
}

type plan struct {
	Branches         int
	DoctorsPerBranch int
	Password         string
}

type summary struct {
	Branches  int
	Doctors   int
	Templates int
	Modules   int
}

func newBranch(f *gofakeit.Faker, i int) catalog.Branch {
	loc := cities[i%len(cities)]
	area := f.Street()
	return catalog.Branch{
		Name:           fmt.Sprintf("NovaCare %s %s", loc.City, f.LastName()),
		Country:        "India",
		State:          loc.State,
		City:           loc.City,
		Address:        area,
		Pincode:        strconv.Itoa(f.Number(500001, 600099)),
		Phone:          fmt.Sprintf("+91 %d", f.Number(7000000000, 9999999999)),
		Email:          fmt.Sprintf("branch%d@novacare247.com", i+1),
		Latitude:       strconv.FormatFloat(f.Latitude(), 'f', 6, 64),
		Longitude:      strconv.FormatFloat(f.Longitude(), 'f', 6, 64),
		BusinessHours:  "Mon-Sat 09:00-20:00",
		IsHeadquarters: i == 0,
	}
}

func newDoctor(f *gofakeit.Faker, passwordHash string) (accounts.NewUser, catalog.NewDoctor) {
	first, last := f.FirstName(), f.LastName()
	specialty := f.RandomString(specializations)
	user := accounts.NewUser{
		Email:        fmt.Sprintf("%s.%s.%d@novacare247.com", slug.Normalize(first), slug.Normalize(last), f.Number(10, 9999)),
		PasswordHash: passwordHash,
		FullName:     "Dr. " + first + " " + last,
		Phone:        fmt.Sprintf("+91 %d", f.Number(7000000000, 9999999999)),
		Role:         accounts.RoleDoctor,
	}
	doctor := catalog.NewDoctor{
		Specialization:  specialty,
		Qualification:   f.RandomString(qualifications),
		ExperienceYears: f.Number(2, 25),
		Bio:             fmt.Sprintf("%s specialist focused on %s.", specialty, f.Phrase()),
		Expertise:       []string{f.JobTitle(), f.Phrase()},
	}
	return user, doctor
}

// weeklyTemplates opens Monday to Saturday with a morning and an evening
// session. Sunday (6) is closed.
func weeklyTemplates(doctorID int64) []catalog.SlotTemplate {
	var out []catalog.SlotTemplate
	for day := 0; day < 6; day++ {
		out = append(out,
			catalog.SlotTemplate{DoctorID: doctorID, DayOfWeek: day, StartTime: "09:00", EndTime: "13:00", SlotDuration: 30, IsActive: true},
			catalog.SlotTemplate{DoctorID: doctorID, DayOfWeek: day, StartTime: "16:00", EndTime: "20:00", SlotDuration: 30, IsActive: true},
		)
	}
	return out
}

func trainingModules() []catalog.TrainingModule {
	return []catalog.TrainingModule{
		{
			Title:           "Platform Orientation",
			Description:     "How bookings, consultation types and patient records work on NovaCare 24/7.",
			Content:         "Bookings arrive as pending and are confirmed by the clinic team. Home visits require travel buffers.",
			DurationMinutes: 20,
			DisplayOrder:    1,
			IsMandatory:     true,
			IsActive:        true,
			PassingScore:    70,
			Quiz: []catalog.QuizQuestion{{
				Question:      "What is the status of a newly created booking?",
				Options:       []string{"confirmed", "pending", "completed", "cancelled"},
				CorrectAnswer: 1,
			}},
		},
		{
			Title:           "Clinical Documentation Standards",
			Description:     "Assessment notes, treatment plans and progress records.",
			Content:         "Record the assessment, the plan and measurable goals for every session.",
			DurationMinutes: 30,
			DisplayOrder:    2,
			IsMandatory:     true,
			IsActive:        true,
			PassingScore:    70,
			Quiz: []catalog.QuizQuestion{{
				Question:      "Which item belongs in every progress note?",
				Options:       []string{"Marketing consent", "Measurable goals", "Branch revenue", "Referral bonus"},
				CorrectAnswer: 1,
			}},
		},
		{
			Title:           "Home Visit Safety",
			Description:     "Patient safety and conduct during home consultations.",
			Content:         "Confirm the address and caregiver contact before travel. Share live location with the branch.",
			DurationMinutes: 25,
			DisplayOrder:    3,
			IsMandatory:     true,
			IsActive:        true,
			PassingScore:    80,
		},
		{
			Title:           "Video Consultation Etiquette",
			Description:     "Running effective remote sessions.",
			DurationMinutes: 15,
			DisplayOrder:    4,
			IsMandatory:     false,
			IsActive:        true,
			PassingScore:    60,
		},
	}
}

// seed writes the whole dataset in one transaction.
func seed(ctx context.Context, database db.DB, f *gofakeit.Faker, p plan) (summary, error) {
	var out summary
	hash, err := accounts.HashPassword(p.Password)
	if err != nil {
		return out, err
	}

	err = db.WithTx(ctx, database, func(tx pgx.Tx) error {
		users := accounts.NewRepository(tx)
		repo := catalog.NewRepository(tx)

		for i := 0; i < p.Branches; i++ {
			b := newBranch(f, i)
			branchSlug, err := slug.Assign(ctx, slug.Normalize(b.Name), repo.BranchSlugExists)
			if err != nil {
				return err
			}
			b.Slug = branchSlug
			branch, err := repo.CreateBranch(ctx, b)
			if err != nil {
				return err
			}
			out.Branches++

			for j := 0; j < p.DoctorsPerBranch; j++ {
				nu, nd := newDoctor(f, hash)
				u, err := users.Create(ctx, nu)
				if err != nil {
					return fmt.Errorf("seed doctor account %s: %w", nu.Email, err)
				}
				doctorSlug, err := slug.Assign(ctx, slug.DoctorBase(u.FullName), repo.DoctorSlugExists)
				if err != nil {
					return err
				}
				nd.UserID = u.ID
				nd.BranchID = &branch.ID
				nd.Slug = doctorSlug
				doc, err := repo.CreateDoctor(ctx, nd)
				if err != nil {
					return err
				}
				out.Doctors++
				for _, tmpl := range weeklyTemplates(doc.ID) {
					if _, err := repo.CreateTemplate(ctx, tmpl); err != nil {
						return err
					}
					out.Templates++
				}
			}
		}

		for _, m := range trainingModules() {
			if _, err := repo.CreateModule(ctx, m); err != nil {
				return err
			}
			out.Modules++
		}
		return nil
	})
	return out, err
}
