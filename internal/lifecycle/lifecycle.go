// Package lifecycle orchestrates the managed-channel state machine:
// create, category change, archive toggle, two-phase delete, edits, and
// the ACL mutations behind visibility modes and per-user access. It owns
// the invariant that a registry record exists for every managed platform
// channel, and defines the compensation on partial failure.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/aurelwyn/conclave/internal/acl"
	"github.com/aurelwyn/conclave/internal/discord"
	conerrors "github.com/aurelwyn/conclave/internal/errors"
	"github.com/aurelwyn/conclave/internal/profile"
	"github.com/aurelwyn/conclave/internal/registry"
)

// maxChannelsPerOwner is the hard, non-configurable channel quota.
const maxChannelsPerOwner = 2

// archiveCapacity is the soft child limit of an archive container.
const archiveCapacity = 50

// Platform is the guild-scoped adapter contract the orchestrator drives.
type Platform interface {
	CreateChannel(ctx context.Context, params discord.CreateChannelParams) (discord.Channel, error)
	Channel(ctx context.Context, id discord.Snowflake) (discord.Channel, error)
	EditChannel(ctx context.Context, id discord.Snowflake, params discord.EditChannelParams) (discord.Channel, error)
	DeleteChannel(ctx context.Context, id discord.Snowflake) error
	ChildChannels(ctx context.Context, parent discord.Snowflake) ([]discord.Channel, error)
	ReorderChannels(ctx context.Context, positions []discord.ChannelPosition) error
	SetOverwrite(ctx context.Context, channel discord.Snowflake, overwrite discord.Overwrite) error
	RemoveOverwrite(ctx context.Context, channel discord.Snowflake, principal discord.Snowflake) error
	User(ctx context.Context, id discord.Snowflake) (discord.User, error)
	AddMemberRole(ctx context.Context, user discord.Snowflake, role discord.Snowflake) error
}

// Actor is the invoking user with permissions resolved once per request.
type Actor struct {
	ID          discord.Snowflake
	Permissions discord.Permissions
}

// Relationship is the actor's standing toward a managed channel.
type Relationship int

const (
	RelationshipOther Relationship = iota
	RelationshipOwner
	RelationshipManager
)

// CanManage reports whether the relationship allows channel management.
func (r Relationship) CanManage() bool {
	return r == RelationshipOwner || r == RelationshipManager
}

// Service sequences lifecycle transitions across the registry and the
// platform. All dependencies are explicit; there is no ambient state.
type Service struct {
	profile  *profile.Profile
	store    registry.ChannelStore
	platform Platform
	pending  *pendingConfirms
	clock    func() time.Time
}

// NewService creates a lifecycle service.
func NewService(p *profile.Profile, store registry.ChannelStore, platform Platform) *Service {
	return &Service{
		profile:  p,
		store:    store,
		platform: platform,
		pending:  newPendingConfirms(confirmTTL),
		clock:    time.Now,
	}
}

// Relationship computes the actor's standing toward a channel record.
func (s *Service) Relationship(record registry.Channel, actor Actor) Relationship {
	if record.OwnerID == uint64(actor.ID) {
		return RelationshipOwner
	}
	if actor.Permissions.Has(discord.PermissionManageChannels) {
		return RelationshipManager
	}
	return RelationshipOther
}

// CanCreate reports whether the user is under the channel quota. The check
// is advisory: it does not reserve a slot.
func (s *Service) CanCreate(ctx context.Context, owner discord.Snowflake) (bool, error) {
	owned, err := s.store.ListByOwner(ctx, uint64(owner))
	if err != nil {
		return false, fmt.Errorf("list channels by owner: %w", err)
	}
	return len(owned) < maxChannelsPerOwner, nil
}

// Create provisions a new managed channel in a declared category. The
// platform channel is created first; if the registry insert fails the
// platform channel is deleted again so no unmanaged channel survives.
func (s *Service) Create(ctx context.Context, creator discord.Snowflake, name, topic string, category profile.Category) (discord.Channel, error) {
	ok, err := s.CanCreate(ctx, creator)
	if err != nil {
		return discord.Channel{}, err
	}
	if !ok {
		return discord.Channel{}, conerrors.New(conerrors.CodeQuotaExceeded, "owner is at the channel cap")
	}

	channel, err := s.platform.CreateChannel(ctx, discord.CreateChannelParams{
		Name:       name,
		Topic:      topic,
		Parent:     category.ID,
		Overwrites: acl.CreationOverwrites(s.profile.Roles.Everyone, s.profile.Roles.Member, creator),
	})
	if err != nil {
		return discord.Channel{}, conerrors.Wrap(conerrors.CodePlatform, "create platform channel", err)
	}

	categoryID := uint64(category.ID)
	record := registry.Channel{
		ID:       uint64(channel.ID),
		OwnerID:  uint64(creator),
		Category: &categoryID,
	}
	if err := s.store.Insert(ctx, record); err != nil {
		// Compensating delete: the channel must not outlive a failed insert.
		if deleteErr := s.platform.DeleteChannel(ctx, channel.ID); deleteErr != nil {
			log.Printf("lifecycle: compensating delete of channel %s failed: %v", channel.ID, deleteErr)
		}
		if errors.Is(err, registry.ErrAlreadyExists) {
			return discord.Channel{}, conerrors.Wrap(conerrors.CodeAlreadyExists, "insert channel record", err)
		}
		return discord.Channel{}, fmt.Errorf("insert channel record: %w", err)
	}

	if s.profile.Roles.Conlanger != 0 {
		if err := s.platform.AddMemberRole(ctx, creator, s.profile.Roles.Conlanger); err != nil {
			log.Printf("lifecycle: grant conlanger role to %s: %v", creator, err)
		}
	}
	s.sortCategoryBestEffort(ctx, category.ID)
	return channel, nil
}

// SetCategory moves a channel to another declared category. The registry
// is updated first; the platform move happens only when the live parent
// still matches the previously stored category, so archived or drifted
// channels keep their current placement and only the record changes.
func (s *Service) SetCategory(ctx context.Context, actor Actor, channelID discord.Snowflake, categoryName string) (profile.Category, error) {
	record, err := s.getRecord(ctx, channelID)
	if err != nil {
		return profile.Category{}, err
	}
	if record.OwnerID != uint64(actor.ID) {
		return profile.Category{}, conerrors.New(conerrors.CodePermissionDenied, "category change is owner-only")
	}
	category, ok := s.profile.CategoryByName(categoryName)
	if !ok {
		return profile.Category{}, conerrors.New(conerrors.CodeCategoryUnknown, "unknown category "+categoryName)
	}

	oldCategory := record.Category
	categoryID := uint64(category.ID)
	record.Category = &categoryID
	if err := s.store.Update(ctx, record); err != nil {
		if errors.Is(err, registry.ErrNotFound) {
			return profile.Category{}, conerrors.Wrap(conerrors.CodeNotFound, "update channel record", err)
		}
		return profile.Category{}, fmt.Errorf("update channel record: %w", err)
	}

	// The platform side is reconciled best-effort: the record is already
	// correct and unarchiving will land the channel in the new category.
	if oldCategory != nil {
		live, err := s.platform.Channel(ctx, channelID)
		if err != nil {
			log.Printf("lifecycle: fetch channel %s after category update: %v", channelID, err)
			return category, nil
		}
		if live.ParentID == discord.Snowflake(*oldCategory) {
			parent := category.ID
			if _, err := s.platform.EditChannel(ctx, channelID, discord.EditChannelParams{Parent: &parent}); err != nil {
				log.Printf("lifecycle: move channel %s to category %s: %v", channelID, category.ID, err)
				return category, nil
			}
			s.sortCategoryBestEffort(ctx, category.ID)
		}
	}
	return category, nil
}

// ArchiveAction reports the direction an archive toggle took.
type ArchiveAction struct {
	Archived    bool
	Destination discord.Snowflake
}

// ToggleArchive archives a channel into the first archive container with
// capacity, or moves an archived channel back to its stored category. The
// stored category is never changed by archiving, so the channel remembers
// where to return.
func (s *Service) ToggleArchive(ctx context.Context, actor Actor, channelID discord.Snowflake) (ArchiveAction, error) {
	record, err := s.getRecord(ctx, channelID)
	if err != nil {
		return ArchiveAction{}, err
	}
	if !s.Relationship(record, actor).CanManage() {
		return ArchiveAction{}, conerrors.New(conerrors.CodePermissionDenied, "archive toggle needs owner or manager")
	}
	live, err := s.platform.Channel(ctx, channelID)
	if err != nil {
		return ArchiveAction{}, conerrors.Wrap(conerrors.CodePlatform, "fetch channel", err)
	}

	if s.profile.IsArchive(live.ParentID) {
		if record.Category == nil {
			return ArchiveAction{}, conerrors.New(conerrors.CodeCategoryUnset, "archived channel has no stored category")
		}
		destination := discord.Snowflake(*record.Category)
		parent := destination
		if _, err := s.platform.EditChannel(ctx, channelID, discord.EditChannelParams{Parent: &parent}); err != nil {
			return ArchiveAction{}, conerrors.Wrap(conerrors.CodePlatform, "unarchive channel", err)
		}
		s.sortCategoryBestEffort(ctx, destination)
		return ArchiveAction{Archived: false, Destination: destination}, nil
	}

	destination, err := s.ChooseArchive(ctx)
	if err != nil {
		return ArchiveAction{}, err
	}
	parent := destination
	if _, err := s.platform.EditChannel(ctx, channelID, discord.EditChannelParams{Parent: &parent}); err != nil {
		return ArchiveAction{}, conerrors.Wrap(conerrors.CodePlatform, "archive channel", err)
	}
	s.sortCategoryBestEffort(ctx, destination)
	return ArchiveAction{Archived: true, Destination: destination}, nil
}

// ChooseArchive returns the first configured archive container whose live
// child count is under capacity. First-fit, probed live so the count never
// drifts from platform truth.
func (s *Service) ChooseArchive(ctx context.Context) (discord.Snowflake, error) {
	for _, archive := range s.profile.Archives {
		children, err := s.platform.ChildChannels(ctx, archive)
		if err != nil {
			log.Printf("lifecycle: list archive %s children: %v", archive, err)
			continue
		}
		if len(children) < archiveCapacity {
			return archive, nil
		}
	}
	return 0, conerrors.New(conerrors.CodeNoCapacity, "all archive containers are full")
}

// RequestDelete records a pending delete confirmation for the actor.
func (s *Service) RequestDelete(ctx context.Context, actor Actor, channelID discord.Snowflake) error {
	record, err := s.getRecord(ctx, channelID)
	if err != nil {
		return err
	}
	if !s.Relationship(record, actor).CanManage() {
		return conerrors.New(conerrors.CodePermissionDenied, "delete request needs owner or manager")
	}
	s.pending.put(channelID, actor.ID, s.clock())
	return nil
}

// ConfirmDelete consumes a pending confirmation and deletes the platform
// channel. The registry record is retired by HandleChannelDeleted when the
// platform announces the deletion; that handler is the single place
// records are removed, so admin-side deletions clean up the same way.
func (s *Service) ConfirmDelete(ctx context.Context, actor Actor, channelID discord.Snowflake) error {
	record, err := s.getRecord(ctx, channelID)
	if err != nil {
		return err
	}
	if record.OwnerID != uint64(actor.ID) {
		return conerrors.New(conerrors.CodePermissionDenied, "delete confirmation is owner-only")
	}
	if !s.pending.take(channelID, actor.ID, s.clock()) {
		return conerrors.New(conerrors.CodeConfirmExpired, "no pending delete confirmation")
	}
	if err := s.platform.DeleteChannel(ctx, channelID); err != nil {
		return conerrors.Wrap(conerrors.CodePlatform, "delete platform channel", err)
	}
	return nil
}

// Edit renames a channel and/or replaces its topic, then re-sorts the
// containing category since the name change can move its sort position.
func (s *Service) Edit(ctx context.Context, actor Actor, channelID discord.Snowflake, name, topic string) error {
	record, err := s.getRecord(ctx, channelID)
	if err != nil {
		return err
	}
	if !s.Relationship(record, actor).CanManage() {
		return conerrors.New(conerrors.CodePermissionDenied, "edit needs owner or manager")
	}
	edited, err := s.platform.EditChannel(ctx, channelID, discord.EditChannelParams{Name: &name, Topic: &topic})
	if err != nil {
		return conerrors.Wrap(conerrors.CodePlatform, "edit channel", err)
	}
	if edited.ParentID != 0 {
		s.sortCategoryBestEffort(ctx, edited.ParentID)
	}
	return nil
}

// ChannelForEdit checks that the actor may edit the channel and returns
// its live state, used to prefill the edit form.
func (s *Service) ChannelForEdit(ctx context.Context, actor Actor, channelID discord.Snowflake) (discord.Channel, error) {
	record, err := s.getRecord(ctx, channelID)
	if err != nil {
		return discord.Channel{}, err
	}
	if !s.Relationship(record, actor).CanManage() {
		return discord.Channel{}, conerrors.New(conerrors.CodePermissionDenied, "edit needs owner or manager")
	}
	live, err := s.platform.Channel(ctx, channelID)
	if err != nil {
		return discord.Channel{}, conerrors.Wrap(conerrors.CodePlatform, "fetch channel", err)
	}
	return live, nil
}

// SetMode applies a visibility mode to the member role. The mode itself is
// never stored; the resulting overwrite set is the only record of it.
func (s *Service) SetMode(ctx context.Context, actor Actor, channelID discord.Snowflake, mode acl.Mode) error {
	record, err := s.getRecord(ctx, channelID)
	if err != nil {
		return err
	}
	if record.OwnerID != uint64(actor.ID) {
		return conerrors.New(conerrors.CodePermissionDenied, "mode change is owner-only")
	}
	overwrite, remove := acl.ModeChange(mode, s.profile.Roles.Member)
	if remove {
		if err := s.platform.RemoveOverwrite(ctx, channelID, overwrite.ID); err != nil {
			return conerrors.Wrap(conerrors.CodePlatform, "remove member overwrite", err)
		}
		return nil
	}
	if err := s.platform.SetOverwrite(ctx, channelID, overwrite); err != nil {
		return conerrors.Wrap(conerrors.CodePlatform, "set member overwrite", err)
	}
	return nil
}

// AddViewer grants a named user visibility.
func (s *Service) AddViewer(ctx context.Context, actor Actor, channelID, target discord.Snowflake) error {
	return s.setUserOverwrite(ctx, actor, channelID, target, acl.Viewer(target), false)
}

// RemoveViewer removes a named user's overwrite entirely.
func (s *Service) RemoveViewer(ctx context.Context, actor Actor, channelID, target discord.Snowflake) error {
	return s.setUserOverwrite(ctx, actor, channelID, target, discord.Overwrite{ID: target}, true)
}

// SetCollaborator grants a named user visibility and write access.
func (s *Service) SetCollaborator(ctx context.Context, actor Actor, channelID, target discord.Snowflake) error {
	return s.setUserOverwrite(ctx, actor, channelID, target, acl.Collaborator(target), false)
}

// Ban denies a named user visibility and write access.
func (s *Service) Ban(ctx context.Context, actor Actor, channelID, target discord.Snowflake) error {
	return s.setUserOverwrite(ctx, actor, channelID, target, acl.Banned(target), false)
}

// Unban removes a named user's overwrite entirely. Owner-only.
func (s *Service) Unban(ctx context.Context, actor Actor, channelID, target discord.Snowflake) error {
	record, err := s.getRecord(ctx, channelID)
	if err != nil {
		return err
	}
	if record.OwnerID != uint64(actor.ID) {
		return conerrors.New(conerrors.CodePermissionDenied, "unban is owner-only")
	}
	if err := s.guardTarget(ctx, record, target); err != nil {
		return err
	}
	if err := s.platform.RemoveOverwrite(ctx, channelID, target); err != nil {
		return conerrors.Wrap(conerrors.CodePlatform, "remove user overwrite", err)
	}
	return nil
}

// FixPerms restores the hide-everyone and owner overwrites on the current
// channel for the invoking manager.
func (s *Service) FixPerms(ctx context.Context, actor Actor, channelID discord.Snowflake) error {
	if err := s.platform.SetOverwrite(ctx, channelID, acl.HideEveryone(s.profile.Roles.Everyone)); err != nil {
		return conerrors.Wrap(conerrors.CodePlatform, "set everyone overwrite", err)
	}
	if err := s.platform.SetOverwrite(ctx, channelID, acl.Owner(actor.ID)); err != nil {
		return conerrors.Wrap(conerrors.CodePlatform, "set owner overwrite", err)
	}
	return nil
}

// SortCategory reorders a category's children by ascending name. The order
// is a derived invariant: it is recomputed from live state after every
// structural change, never maintained incrementally.
func (s *Service) SortCategory(ctx context.Context, category discord.Snowflake) error {
	children, err := s.platform.ChildChannels(ctx, category)
	if err != nil {
		return conerrors.Wrap(conerrors.CodePlatform, "list category children", err)
	}
	sort.Slice(children, func(i, j int) bool {
		return children[i].Name < children[j].Name
	})
	positions := make([]discord.ChannelPosition, len(children))
	for idx, child := range children {
		positions[idx] = discord.ChannelPosition{ID: child.ID, Position: idx}
	}
	if err := s.platform.ReorderChannels(ctx, positions); err != nil {
		return conerrors.Wrap(conerrors.CodePlatform, "reorder category children", err)
	}
	return nil
}

// HandleChannelDeleted retires the registry record for a deleted platform
// channel. Deletions of unmanaged channels are ignored. This is the only
// code path that removes records, for bot-initiated and admin-initiated
// deletions alike.
func (s *Service) HandleChannelDeleted(ctx context.Context, channelID discord.Snowflake) error {
	if _, err := s.store.DeleteByID(ctx, uint64(channelID)); err != nil {
		if errors.Is(err, registry.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("delete channel record: %w", err)
	}
	log.Printf("lifecycle: retired record for deleted channel %s", channelID)
	return nil
}

func (s *Service) getRecord(ctx context.Context, channelID discord.Snowflake) (registry.Channel, error) {
	record, err := s.store.GetByID(ctx, uint64(channelID))
	if err != nil {
		if errors.Is(err, registry.ErrNotFound) {
			return registry.Channel{}, conerrors.Wrap(conerrors.CodeNotFound, "no record for channel", err)
		}
		return registry.Channel{}, fmt.Errorf("get channel record: %w", err)
	}
	return record, nil
}

// guardTarget enforces the fixed targeting invariants: the owner can never
// be the target of a named-user action, and bot accounts are off limits.
func (s *Service) guardTarget(ctx context.Context, record registry.Channel, target discord.Snowflake) error {
	if record.OwnerID == uint64(target) {
		return conerrors.New(conerrors.CodeTargetIsOwner, "target is the channel owner")
	}
	user, err := s.platform.User(ctx, target)
	if err != nil {
		return conerrors.Wrap(conerrors.CodePlatform, "fetch target user", err)
	}
	if user.Bot {
		return conerrors.New(conerrors.CodeTargetIsBot, "target is a bot account")
	}
	return nil
}

func (s *Service) setUserOverwrite(ctx context.Context, actor Actor, channelID, target discord.Snowflake, overwrite discord.Overwrite, remove bool) error {
	record, err := s.getRecord(ctx, channelID)
	if err != nil {
		return err
	}
	if !s.Relationship(record, actor).CanManage() {
		return conerrors.New(conerrors.CodePermissionDenied, "user access change needs owner or manager")
	}
	if err := s.guardTarget(ctx, record, target); err != nil {
		return err
	}
	if remove {
		if err := s.platform.RemoveOverwrite(ctx, channelID, target); err != nil {
			return conerrors.Wrap(conerrors.CodePlatform, "remove user overwrite", err)
		}
		return nil
	}
	if err := s.platform.SetOverwrite(ctx, channelID, overwrite); err != nil {
		return conerrors.Wrap(conerrors.CodePlatform, "set user overwrite", err)
	}
	return nil
}

func (s *Service) sortCategoryBestEffort(ctx context.Context, category discord.Snowflake) {
	if err := s.SortCategory(ctx, category); err != nil {
		log.Printf("lifecycle: sort category %s: %v", category, err)
	}
}
