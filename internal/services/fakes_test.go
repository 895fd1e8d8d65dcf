package services

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"clubevents/internal/domain"
	"clubevents/internal/eligibility"
)

// fakeUserRepo is an in-memory UserRepository for tests.
type fakeUserRepo struct {
	byID      map[string]*domain.User
	nextID    int
	createErr error
	updateErr error
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{byID: make(map[string]*domain.User), nextID: 1}
}

func (f *fakeUserRepo) addUser(id, username, email string) *domain.User {
	u := &domain.User{ID: id, Username: username, Email: strings.ToLower(email), FirstName: "Jane", FamilyName: "Doe"}
	f.byID[id] = u
	return u
}

func (f *fakeUserRepo) Create(ctx context.Context, user *domain.User) error {
	if f.createErr != nil {
		return f.createErr
	}
	for _, u := range f.byID {
		if u.Username == user.Username {
			return domain.ErrDuplicateUsername
		}
		if strings.EqualFold(u.Email, user.Email) {
			return domain.ErrDuplicateEmail
		}
	}
	user.ID = fmt.Sprintf("user-%d", f.nextID)
	f.nextID++
	f.byID[user.ID] = user
	return nil
}

func (f *fakeUserRepo) GetByID(ctx context.Context, id string) (*domain.User, error) {
	if u, ok := f.byID[id]; ok {
		return u, nil
	}
	return nil, domain.ErrUserNotFound
}

func (f *fakeUserRepo) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	for _, u := range f.byID {
		if u.Username == username {
			return u, nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (f *fakeUserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	for _, u := range f.byID {
		if strings.EqualFold(u.Email, email) {
			return u, nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (f *fakeUserRepo) GetByPasswordResetToken(ctx context.Context, token string) (*domain.User, error) {
	for _, u := range f.byID {
		if u.PasswordResetToken.Valid && u.PasswordResetToken.String == token {
			return u, nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (f *fakeUserRepo) GetByEmailChangeToken(ctx context.Context, token string) (*domain.User, error) {
	for _, u := range f.byID {
		if u.EmailChangeToken.Valid && u.EmailChangeToken.String == token {
			return u, nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (f *fakeUserRepo) Update(ctx context.Context, user *domain.User) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	if _, ok := f.byID[user.ID]; !ok {
		return domain.ErrUserNotFound
	}
	f.byID[user.ID] = user
	return nil
}

func (f *fakeUserRepo) UpdateRole(ctx context.Context, id string, role domain.Role) error {
	u, ok := f.byID[id]
	if !ok {
		return domain.ErrUserNotFound
	}
	u.Role = role
	return nil
}

func (f *fakeUserRepo) Delete(ctx context.Context, id string) error {
	if _, ok := f.byID[id]; !ok {
		return domain.ErrUserNotFound
	}
	delete(f.byID, id)
	return nil
}

func (f *fakeUserRepo) List(ctx context.Context, roleFilter *domain.Role, search string, params domain.PaginationParams) ([]*domain.User, int, error) {
	var out []*domain.User
	for _, u := range f.byID {
		if roleFilter != nil && u.Role != *roleFilter {
			continue
		}
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out, len(out), nil
}

// fakeGroupRepo is an in-memory GroupRepository for tests.
type fakeGroupRepo struct {
	byID   map[string]*domain.Group
	nextID int
}

func newFakeGroupRepo() *fakeGroupRepo {
	return &fakeGroupRepo{byID: make(map[string]*domain.Group), nextID: 1}
}

func (f *fakeGroupRepo) addGroup(id, name string) *domain.Group {
	g := &domain.Group{ID: id, Name: name, Slug: slugify(name)}
	f.byID[id] = g
	return g
}

func (f *fakeGroupRepo) Create(ctx context.Context, group *domain.Group) error {
	group.ID = fmt.Sprintf("grp-%d", f.nextID)
	f.nextID++
	f.byID[group.ID] = group
	return nil
}

func (f *fakeGroupRepo) GetByID(ctx context.Context, id string) (*domain.Group, error) {
	if g, ok := f.byID[id]; ok {
		return g, nil
	}
	return nil, domain.ErrNotFound
}

func (f *fakeGroupRepo) GetBySlug(ctx context.Context, slug string) (*domain.Group, error) {
	for _, g := range f.byID {
		if g.Slug == slug {
			return g, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (f *fakeGroupRepo) Update(ctx context.Context, group *domain.Group) error {
	if _, ok := f.byID[group.ID]; !ok {
		return domain.ErrNotFound
	}
	f.byID[group.ID] = group
	return nil
}

func (f *fakeGroupRepo) Delete(ctx context.Context, id string) error {
	if _, ok := f.byID[id]; !ok {
		return domain.ErrNotFound
	}
	delete(f.byID, id)
	return nil
}

func (f *fakeGroupRepo) List(ctx context.Context, search string, params domain.PaginationParams) ([]*domain.Group, int, error) {
	var out []*domain.Group
	for _, g := range f.byID {
		out = append(out, g)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, len(out), nil
}

// fakeGroupMemberRepo is an in-memory GroupMemberRepository for tests. Group
// context for ListByUserID comes from the groups map when one is set.
type fakeGroupMemberRepo struct {
	byID   map[string]*domain.GroupMember
	groups map[string]*domain.Group
	nextID int
}

func newFakeGroupMemberRepo() *fakeGroupMemberRepo {
	return &fakeGroupMemberRepo{byID: make(map[string]*domain.GroupMember), nextID: 1}
}

func (f *fakeGroupMemberRepo) addMember(id, groupID, userID string, role domain.MemberRole) *domain.GroupMember {
	m := &domain.GroupMember{ID: id, GroupID: groupID, UserID: userID, Role: role, JoinedAt: time.Now()}
	f.byID[id] = m
	return m
}

func (f *fakeGroupMemberRepo) Add(ctx context.Context, member *domain.GroupMember) error {
	for _, m := range f.byID {
		if m.GroupID == member.GroupID && m.UserID == member.UserID {
			return domain.ErrAlreadyMember
		}
	}
	member.ID = fmt.Sprintf("mem-%d", f.nextID)
	f.nextID++
	f.byID[member.ID] = member
	return nil
}

func (f *fakeGroupMemberRepo) GetByID(ctx context.Context, id string) (*domain.GroupMember, error) {
	if m, ok := f.byID[id]; ok {
		return m, nil
	}
	return nil, domain.ErrNotFound
}

func (f *fakeGroupMemberRepo) GetByGroupAndUser(ctx context.Context, groupID, userID string) (*domain.GroupMember, error) {
	for _, m := range f.byID {
		if m.GroupID == groupID && m.UserID == userID {
			return m, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (f *fakeGroupMemberRepo) UpdateRole(ctx context.Context, id string, role domain.MemberRole) error {
	m, ok := f.byID[id]
	if !ok {
		return domain.ErrNotFound
	}
	m.Role = role
	return nil
}

func (f *fakeGroupMemberRepo) Remove(ctx context.Context, id string) error {
	if _, ok := f.byID[id]; !ok {
		return domain.ErrNotFound
	}
	delete(f.byID, id)
	return nil
}

func (f *fakeGroupMemberRepo) ListByGroupID(ctx context.Context, groupID string, roleFilter *domain.MemberRole, params domain.PaginationParams) ([]*domain.GroupMember, int, error) {
	var out []*domain.GroupMember
	for _, m := range f.byID {
		if m.GroupID != groupID {
			continue
		}
		if roleFilter != nil && m.Role != *roleFilter {
			continue
		}
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, len(out), nil
}

func (f *fakeGroupMemberRepo) ListByUserID(ctx context.Context, userID string, params domain.PaginationParams) ([]*domain.MembershipWithGroup, int, error) {
	var out []*domain.MembershipWithGroup
	for _, m := range f.byID {
		if m.UserID != userID {
			continue
		}
		item := &domain.MembershipWithGroup{Membership: m}
		if g, ok := f.groups[m.GroupID]; ok {
			item.GroupName = g.Name
			item.GroupSlug = g.Slug
		}
		out = append(out, item)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].GroupName < out[j].GroupName })
	return out, len(out), nil
}

// fakeEventRepo is an in-memory EventRepository for tests. The reachable map
// records which users an event reaches through its groups, for
// ListUpcomingForUser.
type fakeEventRepo struct {
	byID      map[string]*domain.Event
	audience  map[string][]*domain.AudienceMember
	reachable map[string][]string
	nextID    int
	markErr   error
}

func newFakeEventRepo() *fakeEventRepo {
	return &fakeEventRepo{
		byID:      make(map[string]*domain.Event),
		audience:  make(map[string][]*domain.AudienceMember),
		reachable: make(map[string][]string),
		nextID:    1,
	}
}

func (f *fakeEventRepo) addEvent(id, name string, deadline time.Time, send bool) *domain.Event {
	e := &domain.Event{
		ID:              id,
		Name:            name,
		StartUTC:        deadline.Add(24 * time.Hour),
		EndUTC:          deadline.Add(26 * time.Hour),
		DeadlineUTC:     deadline,
		SendInvitations: send,
	}
	f.byID[id] = e
	return e
}

func (f *fakeEventRepo) Create(ctx context.Context, event *domain.Event) error {
	event.ID = fmt.Sprintf("ev-%d", f.nextID)
	f.nextID++
	f.byID[event.ID] = event
	return nil
}

func (f *fakeEventRepo) GetByID(ctx context.Context, id string) (*domain.Event, error) {
	if e, ok := f.byID[id]; ok {
		return e, nil
	}
	return nil, domain.ErrNotFound
}

func (f *fakeEventRepo) Update(ctx context.Context, event *domain.Event) error {
	if _, ok := f.byID[event.ID]; !ok {
		return domain.ErrNotFound
	}
	f.byID[event.ID] = event
	return nil
}

func (f *fakeEventRepo) Delete(ctx context.Context, id string) error {
	if _, ok := f.byID[id]; !ok {
		return domain.ErrNotFound
	}
	delete(f.byID, id)
	return nil
}

func (f *fakeEventRepo) List(ctx context.Context, search string, params domain.PaginationParams) ([]*domain.Event, int, error) {
	var out []*domain.Event
	for _, e := range f.byID {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, len(out), nil
}

func (f *fakeEventRepo) ListUpcoming(ctx context.Context, after time.Time, params domain.PaginationParams) ([]*domain.Event, int, error) {
	var out []*domain.Event
	for _, e := range f.byID {
		if e.StartUTC.After(after) {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartUTC.Before(out[j].StartUTC) })
	return out, len(out), nil
}

func (f *fakeEventRepo) ListUpcomingForUser(ctx context.Context, userID string, after time.Time, params domain.PaginationParams) ([]*domain.Event, int, error) {
	var out []*domain.Event
	for _, e := range f.byID {
		if !e.StartUTC.After(after) {
			continue
		}
		for _, id := range f.reachable[e.ID] {
			if id == userID {
				out = append(out, e)
				break
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartUTC.Before(out[j].StartUTC) })
	return out, len(out), nil
}

func (f *fakeEventRepo) MarkSendInvitations(ctx context.Context, id string) error {
	if f.markErr != nil {
		return f.markErr
	}
	e, ok := f.byID[id]
	if !ok {
		return domain.ErrNotFound
	}
	e.SendInvitations = true
	return nil
}

func (f *fakeEventRepo) ListAudience(ctx context.Context, eventID string) ([]*domain.AudienceMember, error) {
	return f.audience[eventID], nil
}

// fakeInvitationRepo is an in-memory InvitationRepository for tests. Eligible
// pairs are seeded with addEligible; ListMissing subtracts existing rows and
// closed events, matching the SQL adapter's semantics.
type fakeInvitationRepo struct {
	byID     map[string]*domain.Invitation
	eligible []*domain.EligiblePair
	events   map[string]*domain.Event
	nextID   int
	users    map[string]*domain.User
}

func newFakeInvitationRepo(events *fakeEventRepo, users *fakeUserRepo) *fakeInvitationRepo {
	f := &fakeInvitationRepo{
		byID:   make(map[string]*domain.Invitation),
		events: events.byID,
		nextID: 1,
	}
	if users != nil {
		f.users = users.byID
	}
	return f
}

func (f *fakeInvitationRepo) addEligible(userID, eventID, email string) {
	eventName := ""
	if e, ok := f.events[eventID]; ok {
		eventName = e.Name
	}
	f.eligible = append(f.eligible, &domain.EligiblePair{
		UserID:    userID,
		EventID:   eventID,
		Email:     email,
		FirstName: "Jane",
		EventName: eventName,
	})
}

func (f *fakeInvitationRepo) addInvitation(id, eventID, userID, token string) *domain.Invitation {
	inv := &domain.Invitation{ID: id, EventID: eventID, UserID: userID, Token: token}
	f.byID[id] = inv
	return inv
}

func (f *fakeInvitationRepo) Create(ctx context.Context, inv *domain.Invitation) error {
	for _, existing := range f.byID {
		if existing.EventID == inv.EventID && existing.UserID == inv.UserID {
			return domain.ErrDuplicateInvitation
		}
	}
	inv.ID = fmt.Sprintf("inv-%d", f.nextID)
	f.nextID++
	f.byID[inv.ID] = inv
	return nil
}

func (f *fakeInvitationRepo) GetByID(ctx context.Context, id string) (*domain.Invitation, error) {
	if inv, ok := f.byID[id]; ok {
		return inv, nil
	}
	return nil, domain.ErrNotFound
}

func (f *fakeInvitationRepo) GetByToken(ctx context.Context, token string) (*domain.Invitation, error) {
	for _, inv := range f.byID {
		if inv.Token == token {
			return inv, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (f *fakeInvitationRepo) GetByEventAndUser(ctx context.Context, eventID, userID string) (*domain.Invitation, error) {
	for _, inv := range f.byID {
		if inv.EventID == eventID && inv.UserID == userID {
			return inv, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (f *fakeInvitationRepo) UpdateReply(ctx context.Context, id string, reply domain.Reply, numFriends, numCarSeats int) error {
	inv, ok := f.byID[id]
	if !ok {
		return domain.ErrNotFound
	}
	inv.Reply = reply
	inv.NumFriends = numFriends
	inv.NumCarSeats = numCarSeats
	return nil
}

func (f *fakeInvitationRepo) MarkSendAttempt(ctx context.Context, id string, at time.Time) error {
	inv, ok := f.byID[id]
	if !ok {
		return domain.ErrNotFound
	}
	inv.SendEmailAttemptUTC.Time = at
	inv.SendEmailAttemptUTC.Valid = true
	return nil
}

func (f *fakeInvitationRepo) MarkSendSuccess(ctx context.Context, id string, at time.Time) error {
	inv, ok := f.byID[id]
	if !ok {
		return domain.ErrNotFound
	}
	inv.SendEmailSuccessUTC.Time = at
	inv.SendEmailSuccessUTC.Valid = true
	return nil
}

func (f *fakeInvitationRepo) ListMissing(ctx context.Context, eventID string, now time.Time) ([]*domain.EligiblePair, error) {
	// Model each seeded pair as a one-member group assigned to the event and
	// let the resolver apply the predicate, the same way the SQL adapter
	// expresses it as a query.
	var rel eligibility.Relations
	meta := make(map[eligibility.Pair]*domain.EligiblePair)
	for i, pair := range f.eligible {
		if eventID != "" && pair.EventID != eventID {
			continue
		}
		groupID := fmt.Sprintf("grp-%d", i)
		rel.Memberships = append(rel.Memberships, eligibility.Membership{UserID: pair.UserID, GroupID: groupID})
		rel.Assignments = append(rel.Assignments, eligibility.Assignment{GroupID: groupID, EventID: pair.EventID})
		meta[eligibility.Pair{UserID: pair.UserID, EventID: pair.EventID}] = pair
	}
	for _, event := range f.events {
		rel.Events = append(rel.Events, eligibility.Event{
			ID:              event.ID,
			SendInvitations: event.SendInvitations,
			DeadlineUTC:     event.DeadlineUTC,
		})
	}
	for _, inv := range f.byID {
		rel.Existing = append(rel.Existing, eligibility.Pair{UserID: inv.UserID, EventID: inv.EventID})
	}

	var out []*domain.EligiblePair
	for _, p := range eligibility.Resolve(rel, now) {
		out = append(out, meta[eligibility.Pair{UserID: p.UserID, EventID: p.EventID}])
	}
	return out, nil
}

func (f *fakeInvitationRepo) ListByEventID(ctx context.Context, eventID string, replyFilter *domain.Reply, params domain.PaginationParams) ([]*domain.InvitationWithUser, int, error) {
	var out []*domain.InvitationWithUser
	for _, inv := range f.byID {
		if inv.EventID != eventID {
			continue
		}
		if replyFilter != nil && inv.Reply != *replyFilter {
			continue
		}
		item := &domain.InvitationWithUser{Invitation: inv}
		if u, ok := f.users[inv.UserID]; ok {
			item.Username = u.Username
			item.FirstName = u.FirstName
			item.FamilyName = u.FamilyName
			item.Email = u.Email
		}
		out = append(out, item)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Invitation.ID < out[j].Invitation.ID })
	return out, len(out), nil
}

func (f *fakeInvitationRepo) ListByUserID(ctx context.Context, userID string, params domain.PaginationParams) ([]*domain.InvitationWithEvent, int, error) {
	var out []*domain.InvitationWithEvent
	for _, inv := range f.byID {
		if inv.UserID != userID {
			continue
		}
		item := &domain.InvitationWithEvent{Invitation: inv}
		if e, ok := f.events[inv.EventID]; ok {
			item.EventName = e.Name
			item.StartUTC = e.StartUTC
			item.DeadlineUTC = e.DeadlineUTC
		}
		out = append(out, item)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartUTC.Before(out[j].StartUTC) })
	return out, len(out), nil
}

func (f *fakeInvitationRepo) StatsByEventID(ctx context.Context, eventID string) (*domain.InvitationStats, error) {
	stats := &domain.InvitationStats{}
	for _, inv := range f.byID {
		if inv.EventID != eventID || inv.Reply != domain.ReplyAccepted {
			continue
		}
		stats.Accepted++
		stats.TotalFriends += inv.NumFriends
		stats.TotalCarSeats += inv.NumCarSeats
	}
	return stats, nil
}

// fakeEmailService records sent messages and can fail per address.
type fakeEmailService struct {
	invitations  []*domain.InvitationEmailData
	updates      []*domain.EventUpdateEmailData
	confirms     []*domain.RegistrationConfirmEmailData
	resets       []*domain.PasswordResetEmailData
	emailChanges []*domain.EmailChangeEmailData
	failFor      map[string]error
}

func newFakeEmailService() *fakeEmailService {
	return &fakeEmailService{failFor: make(map[string]error)}
}

func (f *fakeEmailService) SendInvitation(ctx context.Context, data *domain.InvitationEmailData) error {
	if err := f.failFor[data.Email]; err != nil {
		return err
	}
	f.invitations = append(f.invitations, data)
	return nil
}

func (f *fakeEmailService) SendEventUpdate(ctx context.Context, data *domain.EventUpdateEmailData) error {
	if err := f.failFor[data.Email]; err != nil {
		return err
	}
	f.updates = append(f.updates, data)
	return nil
}

func (f *fakeEmailService) SendRegistrationConfirm(ctx context.Context, data *domain.RegistrationConfirmEmailData) error {
	if err := f.failFor[data.Email]; err != nil {
		return err
	}
	f.confirms = append(f.confirms, data)
	return nil
}

func (f *fakeEmailService) SendPasswordReset(ctx context.Context, data *domain.PasswordResetEmailData) error {
	if err := f.failFor[data.Email]; err != nil {
		return err
	}
	f.resets = append(f.resets, data)
	return nil
}

func (f *fakeEmailService) SendEmailChangeConfirm(ctx context.Context, data *domain.EmailChangeEmailData) error {
	if err := f.failFor[data.Email]; err != nil {
		return err
	}
	f.emailChanges = append(f.emailChanges, data)
	return nil
}

// fakeHasher is a transparent PasswordHasher for tests.
type fakeHasher struct{}

func (fakeHasher) GenerateSalt() (string, error) { return "salt", nil }

func (fakeHasher) Hash(salt, password string) (string, error) {
	return "hash(" + salt + ":" + password + ")", nil
}

func (fakeHasher) Compare(hash, salt, password string) error {
	if hash != "hash("+salt+":"+password+")" {
		return fmt.Errorf("mismatch")
	}
	return nil
}

// fakeTokenIssuer issues predictable session tokens.
type fakeTokenIssuer struct{}

func (fakeTokenIssuer) Issue(userID string, role domain.Role, expiry time.Duration) (string, error) {
	return "session-" + userID + "-" + role.Code(), nil
}

// fakeRegCodec signs registration payloads with an in-memory table.
type fakeRegCodec struct {
	byToken map[string]*domain.PendingRegistration
	nextID  int
}

func newFakeRegCodec() *fakeRegCodec {
	return &fakeRegCodec{byToken: make(map[string]*domain.PendingRegistration), nextID: 1}
}

func (f *fakeRegCodec) Encode(reg *domain.PendingRegistration) (string, error) {
	token := fmt.Sprintf("reg-token-%d", f.nextID)
	f.nextID++
	f.byToken[token] = reg
	return token, nil
}

func (f *fakeRegCodec) Decode(token string) (*domain.PendingRegistration, error) {
	if reg, ok := f.byToken[token]; ok {
		return reg, nil
	}
	return nil, fmt.Errorf("invalid token")
}
