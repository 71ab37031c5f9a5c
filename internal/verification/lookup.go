package verification

import (
	"context"
	"errors"
	"fmt"

	"github.com/Em-Deesha/profverify/internal/domain"
	"github.com/Em-Deesha/profverify/internal/ports"
)

// DefaultAppID names the production application in collection paths.
const DefaultAppID = "academic-match-production"

const (
	exactMatchLimit  = 5
	scanLimit        = 100
	usersCollection  = "users"
	professorType    = "professor"
	nameField        = "name"
	universityField  = "university"
	userTypeField    = "userType"
	collectionFormat = "artifacts/%s/public/data/professors"
)

// CandidateCollections lists the professor collection paths searched for
// appID, in order, without duplicates.
func CandidateCollections(appID string) []string {
	if appID == "" {
		appID = DefaultAppID
	}
	paths := []string{
		fmt.Sprintf(collectionFormat, appID),
		fmt.Sprintf(collectionFormat, "academic-match-production"),
		fmt.Sprintf(collectionFormat, "academic-matchmaker-prod"),
		"professors",
	}

	seen := make(map[string]bool, len(paths))
	out := paths[:0]
	for _, p := range paths {
		if !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}
	return out
}

// LookupProfile finds the stored profile best matching name and university.
// Each candidate collection is tried with an exact name query and then a
// bounded scan with case-insensitive substring matching in either
// direction; the first hit wins. The users collection is the last resort.
//
// A nil store yields (nil, nil). Failures on individual collections do not
// stop the search; when nothing is found they are returned joined so the
// caller can tell a miss from an unreachable store.
func LookupProfile(ctx context.Context, store ports.DocumentStore, appID, name, university string) (*domain.ProfileRecord, error) {
	if store == nil {
		return nil, nil
	}

	checkUniversity := domain.IsValidUniversity(university)
	matchesUniversity := func(doc domain.Document) bool {
		if !checkUniversity {
			return true
		}
		return domain.MutualContainsFold(domain.StringValue(doc.Fields[universityField]), university)
	}

	var errs []error
	for _, collection := range CandidateCollections(appID) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		doc, err := searchCollection(ctx, store, collection, name, matchesUniversity)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if doc != nil {
			return domain.NormalizeProfile(*doc), nil
		}
	}

	docs, err := store.Query(ctx, usersCollection, []ports.Filter{
		{Field: userTypeField, Value: professorType},
		{Field: nameField, Value: name},
		{Field: universityField, Value: university},
	}, 1)
	if err != nil {
		errs = append(errs, err)
	} else if len(docs) > 0 {
		return domain.NormalizeProfile(docs[0]), nil
	}

	return nil, errors.Join(errs...)
}

func searchCollection(
	ctx context.Context,
	store ports.DocumentStore,
	collection, name string,
	matchesUniversity func(domain.Document) bool,
) (*domain.Document, error) {
	exact, err := store.Query(ctx, collection, []ports.Filter{{Field: nameField, Value: name}}, exactMatchLimit)
	if err != nil {
		return nil, err
	}
	for i := range exact {
		if matchesUniversity(exact[i]) {
			return &exact[i], nil
		}
	}

	all, err := store.Scan(ctx, collection, scanLimit)
	if err != nil {
		return nil, err
	}
	for i := range all {
		docName := domain.StringValue(all[i].Fields[nameField])
		if domain.MutualContainsFold(docName, name) && matchesUniversity(all[i]) {
			return &all[i], nil
		}
	}
	return nil, nil
}
