package service

import (
	"errors"
	"testing"

	"taskhub/internal/model"
)

func TestUserManagementIsAdminOnly(t *testing.T) {
	e := newEnv(t)
	admin := e.user("admin@x.com", model.RoleAdmin)
	manager := e.user("m@x.com", model.RoleManager)

	users, err := e.users.List(e.ctx, manager)
	if err != nil || len(users) != 0 {
		t.Fatalf("manager list = %d users (%v), want empty", len(users), err)
	}
	if _, err := e.users.Get(e.ctx, manager, admin.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("manager get: expected not found, got %v", err)
	}
	if err := e.users.Delete(e.ctx, manager, admin.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("manager delete: expected not found, got %v", err)
	}
	if _, err := e.users.Create(e.ctx, manager, NewUser{Email: "n@x.com", Password: "long-enough"}); !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("manager create: expected permission denied, got %v", err)
	}

	users, err = e.users.List(e.ctx, admin)
	if err != nil || len(users) != 2 {
		t.Fatalf("admin list = %d users (%v), want 2", len(users), err)
	}
}

func TestUserCreateValidation(t *testing.T) {
	e := newEnv(t)
	admin := e.user("admin@x.com", model.RoleAdmin)

	_, err := e.users.Create(e.ctx, admin, NewUser{Email: "n@x.com", Password: "short"})
	wantValidation(t, err, "password")

	_, err = e.users.Create(e.ctx, admin, NewUser{Email: "ADMIN@x.com", Password: "long-enough"})
	wantValidation(t, err, "email")

	_, err = e.users.Create(e.ctx, admin, NewUser{Email: "n@x.com", Password: "long-enough", Role: "OWNER"})
	wantValidation(t, err, "role")

	u, err := e.users.Create(e.ctx, admin, NewUser{Email: " New@X.com", Password: "long-enough", FirstName: "Ana"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if u.Email != "new@x.com" || u.Role != model.RoleClient || !u.IsActive {
		t.Fatalf("unexpected user: %+v", u)
	}
}

func TestUserUpdate(t *testing.T) {
	e := newEnv(t)
	admin := e.user("admin@x.com", model.RoleAdmin)
	target := e.user("t@x.com", model.RoleClient)

	role := model.RoleManager
	inactive := false
	chat := int64(4242)
	u, err := e.users.Update(e.ctx, admin, target.ID, UserChanges{Role: &role, IsActive: &inactive, TelegramChatID: &chat})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if u.Role != model.RoleManager || u.IsActive || u.TelegramChatID == nil || *u.TelegramChatID != 4242 {
		t.Fatalf("unexpected user after update: %+v", u)
	}

	reloaded, err := e.userRepo.FindByID(e.ctx, target.ID)
	if err != nil || reloaded.IsActive {
		t.Fatalf("is_active not persisted: %+v (%v)", reloaded, err)
	}
}

func TestAvailableUsers(t *testing.T) {
	e := newEnv(t)
	admin := e.user("admin@x.com", model.RoleAdmin)
	client := e.user("client@x.com", model.RoleClient)
	manager := e.user("m@x.com", model.RoleManager)
	free := e.user("free@x.com", model.RoleCollaborator)
	full := e.user("full@x.com", model.RoleCollaborator)
	taskBusy := e.user("busy@x.com", model.RoleCollaborator)

	p := e.project("P", admin, client, full, taskBusy)
	e.project("Q", admin, client, full)
	e.project("R", admin, client, full)
	for i := 0; i < 3; i++ {
		e.task("t", p, model.TaskTodo, e.now, taskBusy)
	}

	if _, err := e.users.Available(e.ctx, free, nil); !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("collaborator: expected permission denied, got %v", err)
	}

	got, err := e.users.Available(e.ctx, manager, nil)
	if err != nil {
		t.Fatalf("available: %v", err)
	}
	if ids := userIDs(got); !sameIDs(ids, []uint{manager.ID, free.ID, taskBusy.ID}) {
		t.Fatalf("available = %v", ids)
	}

	got, err = e.users.Available(e.ctx, admin, &p.ID)
	if err != nil {
		t.Fatalf("available for project: %v", err)
	}
	if ids := userIDs(got); !sameIDs(ids, []uint{manager.ID, free.ID}) {
		t.Fatalf("available for project = %v", ids)
	}
}

func TestLoginAndRefresh(t *testing.T) {
	e := newEnv(t)
	admin := e.user("root@x.com", model.RoleAdmin)
	u, err := e.users.Create(e.ctx, admin, NewUser{Email: "a@x.com", Password: "password123", Role: model.RoleManager})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, err := e.auth.Login(e.ctx, "a@x.com", "wrong-password", false); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("wrong password: %v", err)
	}
	if _, err := e.auth.Login(e.ctx, "ghost@x.com", "password123", false); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("unknown user: %v", err)
	}

	ctx := WithClientIP(e.ctx, "10.0.0.7")
	session, err := e.auth.Login(ctx, "A@x.com", "password123", false)
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if session.User.ID != u.ID || session.Tokens.Access == "" || session.Tokens.Refresh == "" {
		t.Fatalf("unexpected session: %+v", session)
	}

	reloaded, _ := e.userRepo.FindByID(e.ctx, u.ID)
	if reloaded.LastLogin == nil || !reloaded.LastLogin.Equal(e.now) || reloaded.LastLoginIP == nil || *reloaded.LastLoginIP != "10.0.0.7" {
		t.Fatalf("login not recorded: %+v", reloaded)
	}
	entries, err := e.activity.Recent(e.ctx, admin)
	if err != nil || len(entries) != 1 || entries[0].Action != model.ActionLogin {
		t.Fatalf("expected one LOGIN entry, got %+v (%v)", entries, err)
	}
	if _, err := e.activity.Recent(e.ctx, u); !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("manager reading activity: %v", err)
	}

	access, err := e.auth.Refresh(e.ctx, session.Tokens.Refresh)
	if err != nil || access == "" {
		t.Fatalf("refresh: %q %v", access, err)
	}
	if _, err := e.auth.Refresh(e.ctx, session.Tokens.Access); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("access token used as refresh: %v", err)
	}
	who, err := e.auth.Authenticate(e.ctx, access)
	if err != nil || who.ID != u.ID {
		t.Fatalf("authenticate: %+v %v", who, err)
	}

	inactive := false
	if _, err := e.users.Update(e.ctx, admin, u.ID, UserChanges{IsActive: &inactive}); err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	if _, err := e.auth.Login(e.ctx, "a@x.com", "password123", false); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("inactive login: %v", err)
	}
	if _, err := e.auth.Authenticate(e.ctx, access); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("inactive authenticate: %v", err)
	}
}

func TestMarkNotificationRead(t *testing.T) {
	e := newEnv(t)
	owner := e.user("o@x.com", model.RoleCollaborator)
	other := e.user("x@x.com", model.RoleCollaborator)
	if err := e.notifications.Notify(e.ctx, model.Notification{
		UserID: owner.ID, Title: "hi", Message: "m", NotificationType: model.NotifySystem,
	}); err != nil {
		t.Fatalf("notify: %v", err)
	}
	items, _ := e.notifications.List(e.ctx, owner)
	id := items[0].ID

	if err := e.notifications.MarkRead(e.ctx, other, id); !errors.Is(err, ErrNotFound) {
		t.Fatalf("foreign notification: expected not found, got %v", err)
	}
	if err := e.notifications.MarkRead(e.ctx, owner, id); err != nil {
		t.Fatalf("mark read: %v", err)
	}
	if err := e.notifications.MarkRead(e.ctx, owner, id); err != nil {
		t.Fatalf("mark read twice: %v", err)
	}
	items, _ = e.notifications.List(e.ctx, owner)
	if !items[0].IsRead {
		t.Fatal("notification still unread")
	}
}

func userIDs(users []model.User) []uint {
	ids := make([]uint, 0, len(users))
	for _, u := range users {
		ids = append(ids, u.ID)
	}
	return ids
}

func sameIDs(a, b []uint) bool {
	if len(a) != len(b) {
		return false
	}
	set := make(map[uint]bool, len(a))
	for _, id := range a {
		set[id] = true
	}
	for _, id := range b {
		if !set[id] {
			return false
		}
	}
	return true
}
