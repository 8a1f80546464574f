package models

import (
	"reflect"
	"strings"
	"testing"
)

// gormTag extracts the gorm tag from a struct field.
func gormTag(t *testing.T, typ reflect.Type, fieldName string) string {
	t.Helper()
	f, ok := typ.FieldByName(fieldName)
	if !ok {
		t.Fatalf("%s.%s: field not found", typ.Name(), fieldName)
	}
	return f.Tag.Get("gorm")
}

// assertGormTag checks that a struct field's gorm tag contains the expected value.
func assertGormTag(t *testing.T, typ reflect.Type, fieldName, expected string) {
	t.Helper()
	tag := gormTag(t, typ, fieldName)
	if !strings.Contains(tag, expected) {
		t.Errorf("%s.%s gorm tag = %q, want to contain %q", typ.Name(), fieldName, tag, expected)
	}
}

// assertFieldType checks that a struct field has the expected Go type.
func assertFieldType(t *testing.T, typ reflect.Type, fieldName, expectedType string) {
	t.Helper()
	f, ok := typ.FieldByName(fieldName)
	if !ok {
		t.Fatalf("%s.%s: field not found", typ.Name(), fieldName)
	}
	got := f.Type.String()
	if got != expectedType {
		t.Errorf("%s.%s type = %q, want %q", typ.Name(), fieldName, got, expectedType)
	}
}

func TestQueueItem_Fields(t *testing.T) {
	typ := reflect.TypeOf(QueueItem{})

	assertGormTag(t, typ, "ID", "primaryKey")
	assertGormTag(t, typ, "Tenant", "uniqueIndex:idx_queue_tenant_phone")
	assertGormTag(t, typ, "Phone", "uniqueIndex:idx_queue_tenant_phone")
	assertGormTag(t, typ, "Name", "index:idx_queue_tenant_name")
	assertGormTag(t, typ, "Name", "not null")
	assertFieldType(t, typ, "Niche", "*string")
}

func TestHistoryItem_Fields(t *testing.T) {
	typ := reflect.TypeOf(HistoryItem{})

	assertGormTag(t, typ, "Tenant", "uniqueIndex:idx_history_tenant_phone")
	assertGormTag(t, typ, "Phone", "uniqueIndex:idx_history_tenant_phone")
	assertGormTag(t, typ, "Sent", "default:false")
	assertGormTag(t, typ, "UpdatedAt", "index:idx_history_sent")
	assertFieldType(t, typ, "Sent", "bool")
	assertFieldType(t, typ, "UpdatedAt", "time.Time")
}

func TestTenantSettings_Fields(t *testing.T) {
	typ := reflect.TypeOf(TenantSettings{})

	assertGormTag(t, typ, "Slug", "primaryKey")
	assertGormTag(t, typ, "Slug", "size:64")
	assertGormTag(t, typ, "LoopStatus", "default:idle")
	assertGormTag(t, typ, "Credentials", "type:text")
	assertFieldType(t, typ, "LoopStatus", "models.LoopStatus")
	assertFieldType(t, typ, "LastRunAt", "*time.Time")
}

func TestLoopStatus_Valid(t *testing.T) {
	for _, s := range []LoopStatus{LoopIdle, LoopRunning, LoopStopping, LoopError} {
		if !s.Valid() {
			t.Errorf("%q.Valid() = false, want true", s)
		}
	}
	if LoopStatus("paused").Valid() {
		t.Error(`"paused".Valid() = true, want false`)
	}
	if LoopStatus("").Valid() {
		t.Error(`"".Valid() = true, want false`)
	}
}

func TestLoopStatus_Active(t *testing.T) {
	tests := []struct {
		status LoopStatus
		want   bool
	}{
		{LoopIdle, false},
		{LoopRunning, true},
		{LoopStopping, true},
		{LoopError, false},
	}
	for _, tt := range tests {
		if got := tt.status.Active(); got != tt.want {
			t.Errorf("%q.Active() = %v, want %v", tt.status, got, tt.want)
		}
	}
}
