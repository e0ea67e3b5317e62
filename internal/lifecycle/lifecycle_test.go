package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/aurelwyn/conclave/internal/acl"
	"github.com/aurelwyn/conclave/internal/discord"
	conerrors "github.com/aurelwyn/conclave/internal/errors"
	"github.com/aurelwyn/conclave/internal/profile"
	"github.com/aurelwyn/conclave/internal/registry"
)

type fakeStore struct {
	channels  map[uint64]registry.Channel
	insertErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{channels: make(map[uint64]registry.Channel)}
}

func (f *fakeStore) Insert(_ context.Context, channel registry.Channel) error {
	if f.insertErr != nil {
		return f.insertErr
	}
	if _, ok := f.channels[channel.ID]; ok {
		return registry.ErrAlreadyExists
	}
	f.channels[channel.ID] = channel
	return nil
}

func (f *fakeStore) Update(_ context.Context, channel registry.Channel) error {
	if _, ok := f.channels[channel.ID]; !ok {
		return registry.ErrNotFound
	}
	f.channels[channel.ID] = channel
	return nil
}

func (f *fakeStore) GetByID(_ context.Context, id uint64) (registry.Channel, error) {
	channel, ok := f.channels[id]
	if !ok {
		return registry.Channel{}, registry.ErrNotFound
	}
	return channel, nil
}

func (f *fakeStore) ListByOwner(_ context.Context, owner uint64) ([]registry.Channel, error) {
	var owned []registry.Channel
	for _, channel := range f.channels {
		if channel.OwnerID == owner {
			owned = append(owned, channel)
		}
	}
	return owned, nil
}

func (f *fakeStore) DeleteByID(_ context.Context, id uint64) (registry.Channel, error) {
	channel, ok := f.channels[id]
	if !ok {
		return registry.Channel{}, registry.ErrNotFound
	}
	delete(f.channels, id)
	return channel, nil
}

type fakePlatform struct {
	channels map[discord.Snowflake]discord.Channel
	users    map[discord.Snowflake]discord.User
	nextID   discord.Snowflake

	createErr   error
	childrenErr map[discord.Snowflake]error

	created    []discord.CreateChannelParams
	deleted    []discord.Snowflake
	reordered  [][]discord.ChannelPosition
	overwrites []struct {
		Channel   discord.Snowflake
		Overwrite discord.Overwrite
	}
	removed []struct {
		Channel   discord.Snowflake
		Principal discord.Snowflake
	}
	roleGrants []struct {
		User discord.Snowflake
		Role discord.Snowflake
	}
}

func newFakePlatform() *fakePlatform {
	return &fakePlatform{
		channels:    make(map[discord.Snowflake]discord.Channel),
		users:       make(map[discord.Snowflake]discord.User),
		childrenErr: make(map[discord.Snowflake]error),
		nextID:      1000,
	}
}

func (f *fakePlatform) CreateChannel(_ context.Context, params discord.CreateChannelParams) (discord.Channel, error) {
	if f.createErr != nil {
		return discord.Channel{}, f.createErr
	}
	f.created = append(f.created, params)
	f.nextID++
	channel := discord.Channel{
		ID:       f.nextID,
		Name:     params.Name,
		Topic:    params.Topic,
		ParentID: params.Parent,
	}
	f.channels[channel.ID] = channel
	return channel, nil
}

func (f *fakePlatform) Channel(_ context.Context, id discord.Snowflake) (discord.Channel, error) {
	channel, ok := f.channels[id]
	if !ok {
		return discord.Channel{}, fmt.Errorf("no channel %s", id)
	}
	return channel, nil
}

func (f *fakePlatform) EditChannel(_ context.Context, id discord.Snowflake, params discord.EditChannelParams) (discord.Channel, error) {
	channel, ok := f.channels[id]
	if !ok {
		return discord.Channel{}, fmt.Errorf("no channel %s", id)
	}
	if params.Name != nil {
		channel.Name = *params.Name
	}
	if params.Topic != nil {
		channel.Topic = *params.Topic
	}
	if params.Parent != nil {
		channel.ParentID = *params.Parent
	}
	f.channels[id] = channel
	return channel, nil
}

func (f *fakePlatform) DeleteChannel(_ context.Context, id discord.Snowflake) error {
	f.deleted = append(f.deleted, id)
	delete(f.channels, id)
	return nil
}

func (f *fakePlatform) ChildChannels(_ context.Context, parent discord.Snowflake) ([]discord.Channel, error) {
	if err := f.childrenErr[parent]; err != nil {
		return nil, err
	}
	var children []discord.Channel
	for _, channel := range f.channels {
		if channel.ParentID == parent {
			children = append(children, channel)
		}
	}
	return children, nil
}

func (f *fakePlatform) ReorderChannels(_ context.Context, positions []discord.ChannelPosition) error {
	f.reordered = append(f.reordered, positions)
	return nil
}

func (f *fakePlatform) SetOverwrite(_ context.Context, channel discord.Snowflake, overwrite discord.Overwrite) error {
	f.overwrites = append(f.overwrites, struct {
		Channel   discord.Snowflake
		Overwrite discord.Overwrite
	}{channel, overwrite})
	return nil
}

func (f *fakePlatform) RemoveOverwrite(_ context.Context, channel, principal discord.Snowflake) error {
	f.removed = append(f.removed, struct {
		Channel   discord.Snowflake
		Principal discord.Snowflake
	}{channel, principal})
	return nil
}

func (f *fakePlatform) User(_ context.Context, id discord.Snowflake) (discord.User, error) {
	user, ok := f.users[id]
	if !ok {
		return discord.User{}, fmt.Errorf("no user %s", id)
	}
	return user, nil
}

func (f *fakePlatform) AddMemberRole(_ context.Context, user, role discord.Snowflake) error {
	f.roleGrants = append(f.roleGrants, struct {
		User discord.Snowflake
		Role discord.Snowflake
	}{user, role})
	return nil
}

func (f *fakePlatform) addChannel(id, parent discord.Snowflake, name string) {
	f.channels[id] = discord.Channel{ID: id, ParentID: parent, Name: name}
}

var _ Platform = (*fakePlatform)(nil)
var _ registry.ChannelStore = (*fakeStore)(nil)

func testProfile() *profile.Profile {
	return &profile.Profile{
		Name:            "test",
		Guild:           1,
		Archives:        []discord.Snowflake{90, 91, 92},
		PrivateArchives: []discord.Snowflake{95},
		PerRow:          4,
		Roles: profile.Roles{
			Everyone:  10,
			Member:    11,
			Conlanger: 12,
		},
		Categories: []profile.Category{
			{ID: 50, Name: "Romance"},
			{ID: 51, Name: "Germanic"},
		},
	}
}

func newTestService(p *profile.Profile, store registry.ChannelStore, platform Platform) *Service {
	s := NewService(p, store, platform)
	s.clock = func() time.Time { return time.Unix(0, 0) }
	return s
}

func TestCreateEnforcesQuota(t *testing.T) {
	store := newFakeStore()
	platform := newFakePlatform()
	svc := newTestService(testProfile(), store, platform)
	category := profile.Category{ID: 50, Name: "Romance"}

	for i := 0; i < maxChannelsPerOwner; i++ {
		if _, err := svc.Create(context.Background(), 7, fmt.Sprintf("lang-%d", i), "", category); err != nil {
			t.Fatalf("Create %d: %v", i, err)
		}
	}
	_, err := svc.Create(context.Background(), 7, "lang-extra", "", category)
	if !conerrors.IsCode(err, conerrors.CodeQuotaExceeded) {
		t.Fatalf("Create over quota = %v, want quota exceeded", err)
	}
	if len(platform.created) != maxChannelsPerOwner {
		t.Fatalf("platform creates = %d, want %d (quota must reject before any platform call)", len(platform.created), maxChannelsPerOwner)
	}
}

func TestCreateRegistersOwnershipAndOverwrites(t *testing.T) {
	store := newFakeStore()
	platform := newFakePlatform()
	p := testProfile()
	svc := newTestService(p, store, platform)

	channel, err := svc.Create(context.Background(), 7, "toki", "a topic", profile.Category{ID: 50, Name: "Romance"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	record, err := store.GetByID(context.Background(), uint64(channel.ID))
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if record.OwnerID != 7 {
		t.Fatalf("OwnerID = %d, want 7", record.OwnerID)
	}
	if record.Category == nil || *record.Category != 50 {
		t.Fatalf("Category = %v, want 50", record.Category)
	}

	want := acl.CreationOverwrites(p.Roles.Everyone, p.Roles.Member, 7)
	got := platform.created[0].Overwrites
	if len(got) != len(want) {
		t.Fatalf("creation overwrites = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("overwrite %d = %+v, want %+v", i, got[i], want[i])
		}
	}
	if len(platform.roleGrants) != 1 || platform.roleGrants[0].Role != 12 {
		t.Fatalf("role grants = %+v, want conlanger role 12", platform.roleGrants)
	}
}

func TestCreateCompensatesOnInsertFailure(t *testing.T) {
	store := newFakeStore()
	store.insertErr = errors.New("disk full")
	platform := newFakePlatform()
	svc := newTestService(testProfile(), store, platform)

	_, err := svc.Create(context.Background(), 7, "toki", "", profile.Category{ID: 50, Name: "Romance"})
	if err == nil {
		t.Fatal("Create with failing insert should error")
	}
	if len(platform.created) != 1 {
		t.Fatalf("platform creates = %d, want 1", len(platform.created))
	}
	if len(platform.deleted) != 1 {
		t.Fatalf("deleted = %v, want exactly the created channel removed", platform.deleted)
	}
	if len(platform.channels) != 0 {
		t.Fatalf("platform channels left = %d, want 0", len(platform.channels))
	}
}

func TestSetCategoryUpdatesRecordAndMovesLiveChannel(t *testing.T) {
	store := newFakeStore()
	platform := newFakePlatform()
	svc := newTestService(testProfile(), store, platform)

	old := uint64(50)
	store.channels[100] = registry.Channel{ID: 100, OwnerID: 7, Category: &old}
	platform.addChannel(100, 50, "toki")

	category, err := svc.SetCategory(context.Background(), Actor{ID: 7}, 100, "germanic")
	if err != nil {
		t.Fatalf("SetCategory: %v", err)
	}
	if category.ID != 51 {
		t.Fatalf("category = %s, want 51", category.ID)
	}
	record := store.channels[100]
	if record.Category == nil || *record.Category != 51 {
		t.Fatalf("stored category = %v, want 51", record.Category)
	}
	if platform.channels[100].ParentID != 51 {
		t.Fatalf("live parent = %s, want 51", platform.channels[100].ParentID)
	}
}

func TestSetCategorySkipsMoveWhenArchived(t *testing.T) {
	store := newFakeStore()
	platform := newFakePlatform()
	svc := newTestService(testProfile(), store, platform)

	old := uint64(50)
	store.channels[100] = registry.Channel{ID: 100, OwnerID: 7, Category: &old}
	platform.addChannel(100, 90, "toki") // parked in an archive

	if _, err := svc.SetCategory(context.Background(), Actor{ID: 7}, 100, "germanic"); err != nil {
		t.Fatalf("SetCategory: %v", err)
	}
	record := store.channels[100]
	if record.Category == nil || *record.Category != 51 {
		t.Fatalf("stored category = %v, want 51", record.Category)
	}
	if platform.channels[100].ParentID != 90 {
		t.Fatalf("live parent = %s, want 90 (archived channel must not move)", platform.channels[100].ParentID)
	}
}

func TestSetCategoryRejectsNonOwner(t *testing.T) {
	store := newFakeStore()
	platform := newFakePlatform()
	svc := newTestService(testProfile(), store, platform)
	store.channels[100] = registry.Channel{ID: 100, OwnerID: 7}

	manager := Actor{ID: 8, Permissions: discord.PermissionManageChannels}
	_, err := svc.SetCategory(context.Background(), manager, 100, "germanic")
	if !conerrors.IsCode(err, conerrors.CodePermissionDenied) {
		t.Fatalf("SetCategory by manager = %v, want permission denied", err)
	}
}

func TestSetCategoryUnknownName(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(testProfile(), store, newFakePlatform())
	store.channels[100] = registry.Channel{ID: 100, OwnerID: 7}

	_, err := svc.SetCategory(context.Background(), Actor{ID: 7}, 100, "klingon")
	if !conerrors.IsCode(err, conerrors.CodeCategoryUnknown) {
		t.Fatalf("SetCategory = %v, want unknown category", err)
	}
}

func TestChooseArchiveFirstFit(t *testing.T) {
	platform := newFakePlatform()
	svc := newTestService(testProfile(), newFakeStore(), platform)

	// Fill the first two archives, leave a few slots in the third.
	next := discord.Snowflake(2000)
	for _, parent := range []discord.Snowflake{90, 91} {
		for i := 0; i < archiveCapacity; i++ {
			next++
			platform.addChannel(next, parent, fmt.Sprintf("c%d", next))
		}
	}
	for i := 0; i < 3; i++ {
		next++
		platform.addChannel(next, 92, fmt.Sprintf("c%d", next))
	}

	archive, err := svc.ChooseArchive(context.Background())
	if err != nil {
		t.Fatalf("ChooseArchive: %v", err)
	}
	if archive != 92 {
		t.Fatalf("archive = %s, want 92", archive)
	}
}

func TestChooseArchiveNoCapacity(t *testing.T) {
	platform := newFakePlatform()
	svc := newTestService(testProfile(), newFakeStore(), platform)

	next := discord.Snowflake(2000)
	for _, parent := range []discord.Snowflake{90, 91, 92} {
		for i := 0; i < archiveCapacity; i++ {
			next++
			platform.addChannel(next, parent, fmt.Sprintf("c%d", next))
		}
	}

	_, err := svc.ChooseArchive(context.Background())
	if !conerrors.IsCode(err, conerrors.CodeNoCapacity) {
		t.Fatalf("ChooseArchive = %v, want no capacity", err)
	}
}

func TestChooseArchiveSkipsUnlistableArchive(t *testing.T) {
	platform := newFakePlatform()
	platform.childrenErr[90] = errors.New("listing failed")
	svc := newTestService(testProfile(), newFakeStore(), platform)

	archive, err := svc.ChooseArchive(context.Background())
	if err != nil {
		t.Fatalf("ChooseArchive: %v", err)
	}
	if archive != 91 {
		t.Fatalf("archive = %s, want 91 (first listable with room)", archive)
	}
}

func TestToggleArchiveRoundTrip(t *testing.T) {
	store := newFakeStore()
	platform := newFakePlatform()
	svc := newTestService(testProfile(), store, platform)

	home := uint64(50)
	store.channels[100] = registry.Channel{ID: 100, OwnerID: 7, Category: &home}
	platform.addChannel(100, 50, "toki")

	action, err := svc.ToggleArchive(context.Background(), Actor{ID: 7}, 100)
	if err != nil {
		t.Fatalf("ToggleArchive (archive): %v", err)
	}
	if !action.Archived || action.Destination != 90 {
		t.Fatalf("action = %+v, want archived into 90", action)
	}
	if got := store.channels[100].Category; got == nil || *got != 50 {
		t.Fatalf("stored category = %v, want 50 untouched by archiving", got)
	}

	action, err = svc.ToggleArchive(context.Background(), Actor{ID: 7}, 100)
	if err != nil {
		t.Fatalf("ToggleArchive (unarchive): %v", err)
	}
	if action.Archived || action.Destination != 50 {
		t.Fatalf("action = %+v, want restored to 50", action)
	}
	if platform.channels[100].ParentID != 50 {
		t.Fatalf("live parent = %s, want 50", platform.channels[100].ParentID)
	}
}

func TestToggleArchiveWithoutCategory(t *testing.T) {
	store := newFakeStore()
	platform := newFakePlatform()
	svc := newTestService(testProfile(), store, platform)

	store.channels[100] = registry.Channel{ID: 100, OwnerID: 7, Category: nil}
	platform.addChannel(100, 50, "toki")

	action, err := svc.ToggleArchive(context.Background(), Actor{ID: 7}, 100)
	if err != nil {
		t.Fatalf("ToggleArchive: %v", err)
	}
	if !action.Archived || action.Destination != 90 {
		t.Fatalf("action = %+v, want archived into 90", action)
	}
	if got := store.channels[100].Category; got != nil {
		t.Fatalf("stored category = %v, want still unset", *got)
	}
}

func TestToggleArchiveRequiresStoredCategoryToRestore(t *testing.T) {
	store := newFakeStore()
	platform := newFakePlatform()
	svc := newTestService(testProfile(), store, platform)

	store.channels[100] = registry.Channel{ID: 100, OwnerID: 7, Category: nil}
	platform.addChannel(100, 90, "toki")

	_, err := svc.ToggleArchive(context.Background(), Actor{ID: 7}, 100)
	if !conerrors.IsCode(err, conerrors.CodeCategoryUnset) {
		t.Fatalf("ToggleArchive = %v, want category unset", err)
	}
}

func TestToggleArchiveManagerAllowed(t *testing.T) {
	store := newFakeStore()
	platform := newFakePlatform()
	svc := newTestService(testProfile(), store, platform)

	home := uint64(50)
	store.channels[100] = registry.Channel{ID: 100, OwnerID: 7, Category: &home}
	platform.addChannel(100, 50, "toki")

	manager := Actor{ID: 8, Permissions: discord.PermissionManageChannels}
	if _, err := svc.ToggleArchive(context.Background(), manager, 100); err != nil {
		t.Fatalf("ToggleArchive by manager: %v", err)
	}
}

func TestDeleteTwoPhase(t *testing.T) {
	store := newFakeStore()
	platform := newFakePlatform()
	svc := newTestService(testProfile(), store, platform)

	store.channels[100] = registry.Channel{ID: 100, OwnerID: 7}
	platform.addChannel(100, 50, "toki")

	// Confirm without a request is rejected.
	err := svc.ConfirmDelete(context.Background(), Actor{ID: 7}, 100)
	if !conerrors.IsCode(err, conerrors.CodeConfirmExpired) {
		t.Fatalf("ConfirmDelete without request = %v, want confirm expired", err)
	}

	if err := svc.RequestDelete(context.Background(), Actor{ID: 7}, 100); err != nil {
		t.Fatalf("RequestDelete: %v", err)
	}
	if err := svc.ConfirmDelete(context.Background(), Actor{ID: 7}, 100); err != nil {
		t.Fatalf("ConfirmDelete: %v", err)
	}
	if len(platform.deleted) != 1 || platform.deleted[0] != 100 {
		t.Fatalf("deleted = %v, want [100]", platform.deleted)
	}
	// The record survives until the deletion event arrives.
	if _, err := store.GetByID(context.Background(), 100); err != nil {
		t.Fatalf("record should survive until the deletion event: %v", err)
	}
	if err := svc.HandleChannelDeleted(context.Background(), 100); err != nil {
		t.Fatalf("HandleChannelDeleted: %v", err)
	}
	if _, err := store.GetByID(context.Background(), 100); !errors.Is(err, registry.ErrNotFound) {
		t.Fatalf("record after deletion event = %v, want ErrNotFound", err)
	}
}

func TestConfirmDeleteOwnerOnly(t *testing.T) {
	store := newFakeStore()
	platform := newFakePlatform()
	svc := newTestService(testProfile(), store, platform)

	store.channels[100] = registry.Channel{ID: 100, OwnerID: 7}
	platform.addChannel(100, 50, "toki")

	manager := Actor{ID: 8, Permissions: discord.PermissionManageChannels}
	if err := svc.RequestDelete(context.Background(), manager, 100); err != nil {
		t.Fatalf("RequestDelete by manager: %v", err)
	}
	err := svc.ConfirmDelete(context.Background(), manager, 100)
	if !conerrors.IsCode(err, conerrors.CodePermissionDenied) {
		t.Fatalf("ConfirmDelete by manager = %v, want permission denied", err)
	}
}

func TestConfirmDeleteExpires(t *testing.T) {
	store := newFakeStore()
	platform := newFakePlatform()
	svc := newTestService(testProfile(), store, platform)

	store.channels[100] = registry.Channel{ID: 100, OwnerID: 7}
	platform.addChannel(100, 50, "toki")

	now := time.Unix(0, 0)
	svc.clock = func() time.Time { return now }
	if err := svc.RequestDelete(context.Background(), Actor{ID: 7}, 100); err != nil {
		t.Fatalf("RequestDelete: %v", err)
	}
	now = now.Add(confirmTTL + time.Second)
	err := svc.ConfirmDelete(context.Background(), Actor{ID: 7}, 100)
	if !conerrors.IsCode(err, conerrors.CodeConfirmExpired) {
		t.Fatalf("ConfirmDelete after TTL = %v, want confirm expired", err)
	}
}

func TestHandleChannelDeletedIgnoresUnmanaged(t *testing.T) {
	svc := newTestService(testProfile(), newFakeStore(), newFakePlatform())
	if err := svc.HandleChannelDeleted(context.Background(), 999); err != nil {
		t.Fatalf("HandleChannelDeleted for unmanaged channel = %v, want nil", err)
	}
}

func TestSetModePrivateRemovesMemberOverwrite(t *testing.T) {
	store := newFakeStore()
	platform := newFakePlatform()
	p := testProfile()
	svc := newTestService(p, store, platform)
	store.channels[100] = registry.Channel{ID: 100, OwnerID: 7}

	if err := svc.SetMode(context.Background(), Actor{ID: 7}, 100, acl.ModePrivate); err != nil {
		t.Fatalf("SetMode private: %v", err)
	}
	if len(platform.removed) != 1 || platform.removed[0].Principal != p.Roles.Member {
		t.Fatalf("removed = %+v, want member role overwrite removed", platform.removed)
	}
	if len(platform.overwrites) != 0 {
		t.Fatalf("overwrites = %+v, want none for private mode", platform.overwrites)
	}
}

func TestSetModePublicSetsMemberOverwrite(t *testing.T) {
	store := newFakeStore()
	platform := newFakePlatform()
	p := testProfile()
	svc := newTestService(p, store, platform)
	store.channels[100] = registry.Channel{ID: 100, OwnerID: 7}

	if err := svc.SetMode(context.Background(), Actor{ID: 7}, 100, acl.ModePublic); err != nil {
		t.Fatalf("SetMode public: %v", err)
	}
	want, _ := acl.ModeChange(acl.ModePublic, p.Roles.Member)
	if len(platform.overwrites) != 1 || platform.overwrites[0].Overwrite != want {
		t.Fatalf("overwrites = %+v, want %+v", platform.overwrites, want)
	}
}

func TestNamedUserGuards(t *testing.T) {
	store := newFakeStore()
	platform := newFakePlatform()
	svc := newTestService(testProfile(), store, platform)

	store.channels[100] = registry.Channel{ID: 100, OwnerID: 7}
	platform.users[8] = discord.User{ID: 8, Username: "robo", Bot: true}
	platform.users[9] = discord.User{ID: 9, Username: "ana"}

	err := svc.Ban(context.Background(), Actor{ID: 7}, 100, 7)
	if !conerrors.IsCode(err, conerrors.CodeTargetIsOwner) {
		t.Fatalf("Ban owner = %v, want target is owner", err)
	}
	err = svc.Ban(context.Background(), Actor{ID: 7}, 100, 8)
	if !conerrors.IsCode(err, conerrors.CodeTargetIsBot) {
		t.Fatalf("Ban bot = %v, want target is bot", err)
	}
	if err := svc.Ban(context.Background(), Actor{ID: 7}, 100, 9); err != nil {
		t.Fatalf("Ban user: %v", err)
	}
	if len(platform.overwrites) != 1 || platform.overwrites[0].Overwrite != acl.Banned(9) {
		t.Fatalf("overwrites = %+v, want ban overwrite for 9", platform.overwrites)
	}
}

func TestViewerAndCollaborator(t *testing.T) {
	store := newFakeStore()
	platform := newFakePlatform()
	svc := newTestService(testProfile(), store, platform)

	store.channels[100] = registry.Channel{ID: 100, OwnerID: 7}
	platform.users[9] = discord.User{ID: 9, Username: "ana"}

	if err := svc.AddViewer(context.Background(), Actor{ID: 7}, 100, 9); err != nil {
		t.Fatalf("AddViewer: %v", err)
	}
	if err := svc.SetCollaborator(context.Background(), Actor{ID: 7}, 100, 9); err != nil {
		t.Fatalf("SetCollaborator: %v", err)
	}
	if len(platform.overwrites) != 2 {
		t.Fatalf("overwrites = %d, want 2", len(platform.overwrites))
	}
	if platform.overwrites[0].Overwrite != acl.Viewer(9) {
		t.Fatalf("first overwrite = %+v, want viewer", platform.overwrites[0].Overwrite)
	}
	if platform.overwrites[1].Overwrite != acl.Collaborator(9) {
		t.Fatalf("second overwrite = %+v, want collaborator", platform.overwrites[1].Overwrite)
	}

	if err := svc.RemoveViewer(context.Background(), Actor{ID: 7}, 100, 9); err != nil {
		t.Fatalf("RemoveViewer: %v", err)
	}
	if len(platform.removed) != 1 || platform.removed[0].Principal != 9 {
		t.Fatalf("removed = %+v, want overwrite for 9 removed", platform.removed)
	}
}

func TestUnbanOwnerOnly(t *testing.T) {
	store := newFakeStore()
	platform := newFakePlatform()
	svc := newTestService(testProfile(), store, platform)

	store.channels[100] = registry.Channel{ID: 100, OwnerID: 7}
	platform.users[9] = discord.User{ID: 9, Username: "ana"}

	manager := Actor{ID: 8, Permissions: discord.PermissionManageChannels}
	err := svc.Unban(context.Background(), manager, 100, 9)
	if !conerrors.IsCode(err, conerrors.CodePermissionDenied) {
		t.Fatalf("Unban by manager = %v, want permission denied", err)
	}
	if err := svc.Unban(context.Background(), Actor{ID: 7}, 100, 9); err != nil {
		t.Fatalf("Unban by owner: %v", err)
	}
	if len(platform.removed) != 1 || platform.removed[0].Principal != 9 {
		t.Fatalf("removed = %+v, want overwrite for 9 removed", platform.removed)
	}
}

func TestSortCategoryByName(t *testing.T) {
	platform := newFakePlatform()
	svc := newTestService(testProfile(), newFakeStore(), platform)

	platform.addChannel(101, 50, "zulu")
	platform.addChannel(102, 50, "alpha")
	platform.addChannel(103, 50, "mike")
	platform.addChannel(104, 51, "other-category")

	if err := svc.SortCategory(context.Background(), 50); err != nil {
		t.Fatalf("SortCategory: %v", err)
	}
	if len(platform.reordered) != 1 {
		t.Fatalf("reorders = %d, want 1", len(platform.reordered))
	}
	got := platform.reordered[0]
	want := []discord.ChannelPosition{{ID: 102, Position: 0}, {ID: 103, Position: 1}, {ID: 101, Position: 2}}
	if len(got) != len(want) {
		t.Fatalf("positions = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("position %d = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestFixPerms(t *testing.T) {
	platform := newFakePlatform()
	p := testProfile()
	svc := newTestService(p, newFakeStore(), platform)

	actor := Actor{ID: 7, Permissions: discord.PermissionManageChannels}
	if err := svc.FixPerms(context.Background(), actor, 100); err != nil {
		t.Fatalf("FixPerms: %v", err)
	}
	if len(platform.overwrites) != 2 {
		t.Fatalf("overwrites = %d, want 2", len(platform.overwrites))
	}
	if platform.overwrites[0].Overwrite != acl.HideEveryone(p.Roles.Everyone) {
		t.Fatalf("first overwrite = %+v, want hide everyone", platform.overwrites[0].Overwrite)
	}
	if platform.overwrites[1].Overwrite != acl.Owner(7) {
		t.Fatalf("second overwrite = %+v, want owner bundle", platform.overwrites[1].Overwrite)
	}
}

func TestOperationsRejectUnknownChannel(t *testing.T) {
	svc := newTestService(testProfile(), newFakeStore(), newFakePlatform())
	actor := Actor{ID: 7}

	if _, err := svc.SetCategory(context.Background(), actor, 100, "romance"); !conerrors.IsCode(err, conerrors.CodeNotFound) {
		t.Fatalf("SetCategory = %v, want not found", err)
	}
	if _, err := svc.ToggleArchive(context.Background(), actor, 100); !conerrors.IsCode(err, conerrors.CodeNotFound) {
		t.Fatalf("ToggleArchive = %v, want not found", err)
	}
	if err := svc.RequestDelete(context.Background(), actor, 100); !conerrors.IsCode(err, conerrors.CodeNotFound) {
		t.Fatalf("RequestDelete = %v, want not found", err)
	}
}
