package store

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/erazemk/perutnina/internal/db"
	"github.com/erazemk/perutnina/internal/model"
)

func TestCreateAndGetFowl(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	f, err := CreateFowl(ctx, database, &model.Fowl{OwnerID: "alice", Name: "Henrietta", Gender: model.GenderFemale})
	if err != nil {
		t.Fatalf("CreateFowl: %v", err)
	}
	if f.ID == "" {
		t.Fatal("expected generated id")
	}
	if f.OwnerID != "alice" || f.Gender != model.GenderFemale {
		t.Errorf("unexpected fowl: %+v", f)
	}

	missing, err := GetFowl(ctx, database, "nope")
	if err != nil {
		t.Fatalf("GetFowl: %v", err)
	}
	if missing != nil {
		t.Error("expected nil for missing fowl")
	}
}

func TestConditionalOwnerUpdate(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	CreateFowl(ctx, database, &model.Fowl{ID: "F1", OwnerID: "alice", Name: "Rooster"})

	at := time.Now()
	if err := ConditionalOwnerUpdate(ctx, database, "F1", "alice", "bob", at); err != nil {
		t.Fatalf("ConditionalOwnerUpdate: %v", err)
	}

	f, _ := GetFowl(ctx, database, "F1")
	if f.OwnerID != "bob" || f.PreviousOwnerID != "alice" {
		t.Errorf("expected owner bob, previous alice, got %q/%q", f.OwnerID, f.PreviousOwnerID)
	}
	if f.TransferredAt != at.UnixMilli() {
		t.Errorf("expected transferredAt %d, got %d", at.UnixMilli(), f.TransferredAt)
	}

	// The stale expectation must not win.
	if err := ConditionalOwnerUpdate(ctx, database, "F1", "alice", "carol", at); err != ErrOwnerConflict {
		t.Errorf("expected ErrOwnerConflict, got %v", err)
	}
	if err := ConditionalOwnerUpdate(ctx, database, "F404", "alice", "carol", at); err != ErrNotFound {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestConditionalOwnerUpdateRace(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	CreateFowl(ctx, database, &model.Fowl{ID: "F1", OwnerID: "alice", Name: "Rooster"})

	const racers = 8
	var wg sync.WaitGroup
	errs := make(chan error, racers)
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs <- ConditionalOwnerUpdate(ctx, database, "F1", "alice", string(rune('a'+i)), time.Now())
		}(i)
	}
	wg.Wait()
	close(errs)

	var ok, conflicts int
	for err := range errs {
		switch err {
		case nil:
			ok++
		case ErrOwnerConflict:
			conflicts++
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	if ok != 1 || conflicts != racers-1 {
		t.Errorf("expected 1 success and %d conflicts, got %d and %d", racers-1, ok, conflicts)
	}
}

func TestLineage(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	CreateFowl(ctx, database, &model.Fowl{ID: "gs", OwnerID: "alice", Name: "Grandsire", Gender: model.GenderMale})
	CreateFowl(ctx, database, &model.Fowl{ID: "s", OwnerID: "alice", Name: "Sire", Gender: model.GenderMale, SireID: "gs"})
	CreateFowl(ctx, database, &model.Fowl{ID: "d", OwnerID: "alice", Name: "Dam", Gender: model.GenderFemale})
	CreateFowl(ctx, database, &model.Fowl{ID: "me", OwnerID: "alice", Name: "Me", SireID: "s", DamID: "d"})
	CreateFowl(ctx, database, &model.Fowl{ID: "sib", OwnerID: "alice", Name: "Sibling", SireID: "s", DamID: "d"})
	CreateFowl(ctx, database, &model.Fowl{ID: "c1", OwnerID: "alice", Name: "Chick", DamID: "me"})

	fowls, edges, err := Lineage(ctx, database, "me", 1)
	if err != nil {
		t.Fatalf("Lineage: %v", err)
	}

	ids := map[string]bool{}
	for _, f := range fowls {
		ids[f.ID] = true
	}
	for _, want := range []string{"me", "s", "d", "c1"} {
		if !ids[want] {
			t.Errorf("expected %q in lineage", want)
		}
	}
	for _, unwanted := range []string{"gs", "sib"} {
		if ids[unwanted] {
			t.Errorf("did not expect %q at depth 1", unwanted)
		}
	}

	// s -> gs edge is returned even though gs is outside the depth.
	found := false
	for _, e := range edges {
		if e.ParentID == "gs" && e.OffspringID == "s" {
			found = true
		}
	}
	if !found {
		t.Error("expected dangling gs -> s edge")
	}

	if _, _, err := Lineage(ctx, database, "missing", 2); err != ErrNotFound {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestFowlImage(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	f, _ := CreateFowl(ctx, database, &model.Fowl{OwnerID: "alice", Name: "Photo"})
	SetFowlImage(ctx, database, f.ID, []byte("fake image data"), "image/jpeg")

	data, mime, err := GetFowlImage(ctx, database, f.ID)
	if err != nil {
		t.Fatalf("GetFowlImage: %v", err)
	}
	if string(data) != "fake image data" || mime != "image/jpeg" {
		t.Errorf("unexpected image %q (%s)", data, mime)
	}
}
