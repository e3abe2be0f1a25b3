package main

import (
	"context"

	"github.com/pkg/errors"

	"github.com/gestiabsences/backend/core/school"
)

// loadDemo seeds a small directory so the app is usable right after setup.
// Existing classes and subjects are kept; students are always appended.
func (cli *commandLine) loadDemo() error {
	ctx := context.Background()

	classes := []school.Class{
		{Name: "3ème A", Level: "3ème"},
		{Name: "3ème B", Level: "3ème"},
		{Name: "4ème A", Level: "4ème"},
		{Name: "4ème B", Level: "4ème"},
		{Name: "5ème C", Level: "5ème"},
	}
	classIDs := make(map[string]int, len(classes))
	for _, cls := range classes {
		existing, err := cli.schoolRepo.GetClassByName(ctx, cls.Name)
		if err == nil {
			classIDs[cls.Name] = existing.ID
			continue
		} else if errors.Cause(err) != school.ErrNotFound {
			return errors.Wrap(err, "checking class")
		}
		created, err := cli.schoolRepo.CreateClass(ctx, cls)
		if err != nil {
			return errors.Wrap(err, "creating class")
		}
		classIDs[cls.Name] = created.ID
	}

	subjects := []string{
		"Mathématiques",
		"Français",
		"Histoire-Géographie",
		"Sciences",
		"Anglais",
		"Sport",
		"Arts plastiques",
		"Musique",
	}
	for _, name := range subjects {
		if _, err := cli.schoolRepo.GetSubjectByName(ctx, name); err == nil {
			continue
		} else if errors.Cause(err) != school.ErrNotFound {
			return errors.Wrap(err, "checking subject")
		}
		if _, err := cli.schoolRepo.CreateSubject(ctx, school.Subject{Name: name}); err != nil {
			return errors.Wrap(err, "creating subject")
		}
	}

	students := []school.Student{
		{
			Firstname:   "Lucas",
			Lastname:    "Martin",
			ClassID:     classIDs["3ème A"],
			ParentName:  "Martin Parents",
			ParentEmail: "martin.parents@email.com",
			ParentPhone: "0612345678",
			Status:      school.StatusActive,
		},
		{
			Firstname:   "Sarah",
			Lastname:    "Dubois",
			ClassID:     classIDs["4ème B"],
			ParentName:  "Dubois Parents",
			ParentEmail: "dubois.parents@email.com",
			ParentPhone: "0623456789",
			Status:      school.StatusActive,
		},
		{
			Firstname:   "Thomas",
			Lastname:    "Leroy",
			ClassID:     classIDs["3ème A"],
			ParentName:  "Leroy Parents",
			ParentEmail: "leroy.parents@email.com",
			ParentPhone: "0634567890",
			Status:      school.StatusActive,
		},
		{
			Firstname:   "Emma",
			Lastname:    "Bernard",
			ClassID:     classIDs["5ème C"],
			ParentName:  "Bernard Parents",
			ParentEmail: "bernard.parents@email.com",
			ParentPhone: "0645678901",
			Status:      school.StatusActive,
		},
		{
			Firstname:   "Louis",
			Lastname:    "Petit",
			ClassID:     classIDs["4ème A"],
			ParentName:  "Petit Parents",
			ParentEmail: "petit.parents@email.com",
			ParentPhone: "0656789012",
			Status:      school.StatusActive,
		},
	}
	for _, st := range students {
		if _, err := cli.schoolRepo.CreateStudent(ctx, st); err != nil {
			return errors.Wrap(err, "creating student")
		}
	}

	logger.Println("demo directory loaded")
	return nil
}
