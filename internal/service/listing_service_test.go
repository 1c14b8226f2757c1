package service

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"testing"

	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/marketplace/internal/auth"
	"github.com/example/marketplace/internal/datamodels/listing"
	"github.com/example/marketplace/internal/identity"
	"github.com/example/marketplace/internal/repository/mysql"
	"github.com/example/marketplace/internal/testutil"
)

var (
	alice = auth.NewSession("alice", "alice")
	bob   = auth.NewSession("bob", "bob")
)

type listingFixture struct {
	svc    *ListingService
	repo   listing.Repository
	idp    *fakeIdentity
	events *fakePublisher
}

func newListingFixture(t *testing.T) *listingFixture {
	t.Helper()
	repo := mysql.NewListingRepository(testutil.NewDB(t))
	idp := &fakeIdentity{names: map[string]string{"bob": "Bobby"}}
	events := &fakePublisher{}
	return &listingFixture{
		svc:    NewListingService(repo, idp, events, nil),
		repo:   repo,
		idp:    idp,
		events: events,
	}
}

func createInput(name, description string, price float64) CreateListingInput {
	return CreateListingInput{Name: lo.ToPtr(name), Description: lo.ToPtr(description), Price: lo.ToPtr(price)}
}

func sendInput(message, listingID string) SendMessageInput {
	return SendMessageInput{Message: lo.ToPtr(message), ListingID: lo.ToPtr(listingID)}
}

func (f *listingFixture) mustCreate(t *testing.T, sess auth.Session, name string) *listing.Listing {
	t.Helper()
	l, err := f.svc.Create(context.Background(), sess, createInput(name, name+" description", 10))
	require.NoError(t, err)
	return l
}

func TestCreateForcesOwnerFromSession(t *testing.T) {
	f := newListingFixture(t)

	var in CreateListingInput
	payload := `{"name":"Bike","description":"Red bike","price":120.5,"userId":"mallory"}`
	require.NoError(t, json.Unmarshal([]byte(payload), &in))

	l, err := f.svc.Create(context.Background(), alice, in)
	require.NoError(t, err)
	assert.NotEmpty(t, l.ID)
	assert.Equal(t, "alice", l.UserID)

	stored, err := f.repo.GetByID(context.Background(), l.ID)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, "alice", stored.UserID)
}

func TestCreateRequiresSession(t *testing.T) {
	repo := &brokenRepo{}
	svc := NewListingService(repo, &fakeIdentity{}, nil, nil)

	_, err := svc.Create(context.Background(), auth.Anonymous(), createInput("Bike", "", 1))
	assert.ErrorIs(t, err, ErrUnauthorized)
	assert.Zero(t, repo.calls)
}

func TestCreateValidation(t *testing.T) {
	repo := &brokenRepo{}
	svc := NewListingService(repo, &fakeIdentity{}, nil, nil)
	ctx := context.Background()

	cases := map[string]CreateListingInput{
		"missing name":        {Description: lo.ToPtr("d"), Price: lo.ToPtr(1.0)},
		"empty name":          createInput("", "d", 1),
		"missing description": {Name: lo.ToPtr("n"), Price: lo.ToPtr(1.0)},
		"missing price":       {Name: lo.ToPtr("n"), Description: lo.ToPtr("d")},
		"nan price":           createInput("n", "d", math.NaN()),
		"infinite price":      createInput("n", "d", math.Inf(1)),
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.Create(ctx, alice, in)
			assert.ErrorIs(t, err, ErrValidation)
		})
	}
	assert.Zero(t, repo.calls)
}

func TestValidationMessageNamesEmptyField(t *testing.T) {
	svc := NewListingService(&brokenRepo{}, &fakeIdentity{}, nil, nil)

	_, err := svc.SendMessage(context.Background(), bob, sendInput("", "l1"))
	require.ErrorIs(t, err, ErrValidation)
	assert.Contains(t, err.Error(), "message must not be empty")

	_, err = svc.Create(context.Background(), alice, createInput("", "d", 1))
	require.ErrorIs(t, err, ErrValidation)
	assert.Contains(t, err.Error(), "name must not be empty")
}

func TestCreateAcceptsZeroPriceAndEmptyDescription(t *testing.T) {
	f := newListingFixture(t)

	l, err := f.svc.Create(context.Background(), alice, createInput("Free chair", "", 0))
	require.NoError(t, err)
	assert.Equal(t, 0.0, l.Price)
	assert.Equal(t, "", l.Description)
}

func TestCreatePropagatesStoreError(t *testing.T) {
	svc := NewListingService(&brokenRepo{}, &fakeIdentity{}, nil, nil)

	_, err := svc.Create(context.Background(), alice, createInput("Bike", "d", 1))
	assert.ErrorIs(t, err, errStoreDown)
}

func TestGet(t *testing.T) {
	f := newListingFixture(t)
	ctx := context.Background()
	l := f.mustCreate(t, alice, "Lamp")

	got, err := f.svc.Get(ctx, auth.Anonymous(), GetListingInput{ListingID: lo.ToPtr(l.ID)})
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Lamp", got.Name)

	missing, err := f.svc.Get(ctx, auth.Anonymous(), GetListingInput{ListingID: lo.ToPtr("nope")})
	require.NoError(t, err)
	assert.Nil(t, missing)

	_, err = f.svc.Get(ctx, auth.Anonymous(), GetListingInput{})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestGetPropagatesStoreError(t *testing.T) {
	svc := NewListingService(&brokenRepo{}, &fakeIdentity{}, nil, nil)

	_, err := svc.Get(context.Background(), alice, GetListingInput{ListingID: lo.ToPtr("x")})
	assert.ErrorIs(t, err, errStoreDown)
}

func TestListReturnsOnlyCallerListings(t *testing.T) {
	f := newListingFixture(t)
	ctx := context.Background()
	a1 := f.mustCreate(t, alice, "a1")
	a2 := f.mustCreate(t, alice, "a2")
	f.mustCreate(t, bob, "b1")

	list, err := f.svc.List(ctx, alice)
	require.NoError(t, err)
	ids := lo.Map(list, func(l *listing.Listing, _ int) string { return l.ID })
	assert.ElementsMatch(t, []string{a1.ID, a2.ID}, ids)

	none, err := f.svc.List(ctx, auth.NewSession("carol", ""))
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestListAnonymousIsEmptyWithoutStoreAccess(t *testing.T) {
	repo := &brokenRepo{}
	svc := NewListingService(repo, &fakeIdentity{}, nil, nil)

	list, err := svc.List(context.Background(), auth.Anonymous())
	require.NoError(t, err)
	assert.NotNil(t, list)
	assert.Empty(t, list)
	assert.Zero(t, repo.calls)
}

func TestSendMessageSnapshotsSender(t *testing.T) {
	f := newListingFixture(t)
	ctx := context.Background()
	l := f.mustCreate(t, alice, "Bike")

	m, err := f.svc.SendMessage(ctx, bob, sendInput("Is this available?", l.ID))
	require.NoError(t, err)
	assert.NotEmpty(t, m.ID)
	assert.Equal(t, "bob", m.FromUser)
	assert.Equal(t, "Bobby", m.FromUserName)
	assert.Equal(t, l.ID, m.ListingID)
	assert.Equal(t, "Is this available?", m.Message)

	// 身份提供方没有用户名时使用占位名
	carol := auth.NewSession("carol", "carol")
	m2, err := f.svc.SendMessage(ctx, carol, sendInput("Price negotiable?", l.ID))
	require.NoError(t, err)
	assert.Equal(t, "carol", m2.FromUser)
	assert.Equal(t, identity.UnknownUsername, m2.FromUserName)
}

func TestSendMessageIgnoresClientSuppliedSender(t *testing.T) {
	f := newListingFixture(t)
	l := f.mustCreate(t, alice, "Bike")

	var in SendMessageInput
	payload := `{"message":"hi","listingId":"` + l.ID + `","fromUser":"alice","fromUserName":"Alice"}`
	require.NoError(t, json.Unmarshal([]byte(payload), &in))

	m, err := f.svc.SendMessage(context.Background(), bob, in)
	require.NoError(t, err)
	assert.Equal(t, "bob", m.FromUser)
	assert.Equal(t, "Bobby", m.FromUserName)
}

func TestSendMessageNameIsSnapshot(t *testing.T) {
	f := newListingFixture(t)
	ctx := context.Background()
	l := f.mustCreate(t, alice, "Bike")

	_, err := f.svc.SendMessage(ctx, bob, sendInput("first", l.ID))
	require.NoError(t, err)

	f.idp.names["bob"] = "Robert"

	msgs, err := f.svc.GetMessages(ctx, alice)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "Bobby", msgs[0].FromUserName)
}

func TestSendMessageRejectsBeforeDownstream(t *testing.T) {
	repo := &brokenRepo{}
	idp := &fakeIdentity{}
	svc := NewListingService(repo, idp, nil, nil)
	ctx := context.Background()

	_, err := svc.SendMessage(ctx, auth.Anonymous(), sendInput("hi", "l1"))
	assert.ErrorIs(t, err, ErrUnauthorized)

	_, err = svc.SendMessage(ctx, bob, SendMessageInput{ListingID: lo.ToPtr("l1")})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = svc.SendMessage(ctx, bob, sendInput("", "l1"))
	assert.ErrorIs(t, err, ErrValidation)

	_, err = svc.SendMessage(ctx, bob, SendMessageInput{Message: lo.ToPtr("hi")})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = svc.SendMessage(ctx, bob, sendInput("hi", ""))
	assert.ErrorIs(t, err, ErrValidation)
	assert.NotErrorIs(t, err, ErrSendFailed)

	assert.Zero(t, repo.calls)
	assert.Zero(t, idp.calls)
}

func TestSendMessageIdentityFailurePropagates(t *testing.T) {
	repo := &brokenRepo{}
	idpErr := errors.New("identity provider unavailable")
	svc := NewListingService(repo, &fakeIdentity{err: idpErr}, nil, nil)

	_, err := svc.SendMessage(context.Background(), bob, sendInput("hi", "l1"))
	assert.ErrorIs(t, err, idpErr)
	assert.Zero(t, repo.calls)
}

func TestSendMessageStoreFailureIsSendFailed(t *testing.T) {
	svc := NewListingService(&brokenRepo{}, &fakeIdentity{}, nil, nil)

	_, err := svc.SendMessage(context.Background(), bob, sendInput("hi", "l1"))
	assert.ErrorIs(t, err, ErrSendFailed)
	assert.ErrorIs(t, err, errStoreDown)
}

func TestSendMessageToMissingListingFails(t *testing.T) {
	f := newListingFixture(t)

	_, err := f.svc.SendMessage(context.Background(), bob, sendInput("hello?", "missing"))
	assert.ErrorIs(t, err, ErrSendFailed)
	assert.Empty(t, f.events.events)
}

func TestSendMessagePublishesEvent(t *testing.T) {
	f := newListingFixture(t)
	l := f.mustCreate(t, alice, "Bike")

	m, err := f.svc.SendMessage(context.Background(), bob, sendInput("hi", l.ID))
	require.NoError(t, err)

	require.Len(t, f.events.events, 1)
	ev := f.events.events[0]
	assert.Equal(t, RoutingKeyMessageSent, ev.key)
	sent, ok := ev.payload.(MessageSentEvent)
	require.True(t, ok)
	assert.Equal(t, m.ID, sent.MessageID)
	assert.Equal(t, l.ID, sent.ListingID)
	assert.Equal(t, "bob", sent.FromUser)
}

func TestSendMessageSurvivesPublishFailure(t *testing.T) {
	f := newListingFixture(t)
	f.events.err = errors.New("broker down")
	l := f.mustCreate(t, alice, "Bike")

	m, err := f.svc.SendMessage(context.Background(), bob, sendInput("hi", l.ID))
	require.NoError(t, err)
	assert.NotEmpty(t, m.ID)
}

func TestGetMessagesReturnsMessagesOnOwnedListings(t *testing.T) {
	f := newListingFixture(t)
	ctx := context.Background()
	bike := f.mustCreate(t, alice, "Bike")
	lamp := f.mustCreate(t, alice, "Lamp")
	bobsCar := f.mustCreate(t, bob, "Car")

	m1, err := f.svc.SendMessage(ctx, bob, sendInput("bike?", bike.ID))
	require.NoError(t, err)
	m2, err := f.svc.SendMessage(ctx, bob, sendInput("lamp?", lamp.ID))
	require.NoError(t, err)
	sentByAlice, err := f.svc.SendMessage(ctx, alice, sendInput("car?", bobsCar.ID))
	require.NoError(t, err)

	msgs, err := f.svc.GetMessages(ctx, alice)
	require.NoError(t, err)
	ids := lo.Map(msgs, func(m *listing.Message, _ int) string { return m.ID })
	assert.ElementsMatch(t, []string{m1.ID, m2.ID}, ids)
	assert.NotContains(t, ids, sentByAlice.ID)

	bobs, err := f.svc.GetMessages(ctx, bob)
	require.NoError(t, err)
	require.Len(t, bobs, 1)
	assert.Equal(t, sentByAlice.ID, bobs[0].ID)
}

func TestGetMessagesEmptyAndUnauthorized(t *testing.T) {
	f := newListingFixture(t)
	ctx := context.Background()
	f.mustCreate(t, alice, "Bike")

	msgs, err := f.svc.GetMessages(ctx, alice)
	require.NoError(t, err)
	assert.NotNil(t, msgs)
	assert.Empty(t, msgs)

	_, err = f.svc.GetMessages(ctx, auth.Anonymous())
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestGetMessagesPropagatesStoreError(t *testing.T) {
	svc := NewListingService(&brokenRepo{}, &fakeIdentity{}, nil, nil)

	_, err := svc.GetMessages(context.Background(), alice)
	assert.ErrorIs(t, err, errStoreDown)
}

func TestMarketplaceScenario(t *testing.T) {
	f := newListingFixture(t)
	ctx := context.Background()

	l, err := f.svc.Create(ctx, alice, createInput("Bike", "Red bike", 120.5))
	require.NoError(t, err)

	got, err := f.svc.Get(ctx, auth.Anonymous(), GetListingInput{ListingID: lo.ToPtr(l.ID)})
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Bike", got.Name)
	assert.Equal(t, "Red bike", got.Description)
	assert.InDelta(t, 120.5, got.Price, 1e-9)
	assert.Equal(t, "alice", got.UserID)

	m, err := f.svc.SendMessage(ctx, bob, sendInput("Is this available?", l.ID))
	require.NoError(t, err)
	assert.Equal(t, "bob", m.FromUser)
	assert.Equal(t, l.ID, m.ListingID)

	inbox, err := f.svc.GetMessages(ctx, alice)
	require.NoError(t, err)
	require.Len(t, inbox, 1)
	assert.Equal(t, m.ID, inbox[0].ID)
	assert.Equal(t, "Is this available?", inbox[0].Message)
}
