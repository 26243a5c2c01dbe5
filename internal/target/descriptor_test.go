package target

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestDescriptor_RoundTrip(t *testing.T) {
	tgt := New(WithIDField("ExternalId"), WithModificationDateField("SystemModstamp"))

	d := tgt.Descriptor()
	if d.Impl != DefaultImpl {
		t.Errorf("Impl = %q, want %q", d.Impl, DefaultImpl)
	}

	rebuilt, err := FromDescriptor(d)
	if err != nil {
		t.Fatal(err)
	}
	if rebuilt.Descriptor() != d {
		t.Errorf("round trip: %+v != %+v", rebuilt.Descriptor(), d)
	}
	if rebuilt.IDFieldName() != "ExternalId" {
		t.Errorf("IDFieldName() = %q, want ExternalId", rebuilt.IDFieldName())
	}
	if rebuilt.ModificationDateFieldName() != "SystemModstamp" {
		t.Errorf("ModificationDateFieldName() = %q, want SystemModstamp", rebuilt.ModificationDateFieldName())
	}
}

func TestDescriptor_DefaultsWhenFieldsOmitted(t *testing.T) {
	tgt, err := FromDescriptor(Descriptor{})
	if err != nil {
		t.Fatal(err)
	}
	if tgt.IDFieldName() != DefaultIDField {
		t.Errorf("IDFieldName() = %q, want %q", tgt.IDFieldName(), DefaultIDField)
	}
	if tgt.ModificationDateFieldName() != DefaultModificationDateField {
		t.Errorf("ModificationDateFieldName() = %q, want %q",
			tgt.ModificationDateFieldName(), DefaultModificationDateField)
	}
	// An empty impl tag selects the built-in variant and is persisted as
	// its concrete tag.
	if tgt.Descriptor().Impl != DefaultImpl {
		t.Errorf("Impl = %q, want %q", tgt.Descriptor().Impl, DefaultImpl)
	}
}

func TestDescriptor_JSON(t *testing.T) {
	d := Descriptor{
		Impl:                      "records",
		IDFieldName:               "Id",
		ModificationDateFieldName: "LastModifiedDate",
	}

	data, err := json.Marshal(d)
	if err != nil {
		t.Fatal(err)
	}
	want := `{"impl":"records","idFieldName":"Id","modificationDateFieldName":"LastModifiedDate"}`
	if string(data) != want {
		t.Errorf("json = %s, want %s", data, want)
	}

	var decoded Descriptor
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatal(err)
	}
	if decoded != d {
		t.Errorf("decoded = %+v, want %+v", decoded, d)
	}
}

func TestFromDescriptor_UnknownImpl(t *testing.T) {
	_, err := FromDescriptor(Descriptor{Impl: "no-such-variant"})
	if !errors.Is(err, ErrUnknownImpl) {
		t.Errorf("expected ErrUnknownImpl, got %v", err)
	}
}

func TestRegister_Panics(t *testing.T) {
	t.Run("nil factory", func(t *testing.T) {
		defer func() {
			if recover() == nil {
				t.Error("expected panic on nil factory")
			}
		}()
		Register("nil-factory", nil)
	})

	t.Run("duplicate impl", func(t *testing.T) {
		defer func() {
			if recover() == nil {
				t.Error("expected panic on duplicate registration")
			}
		}()
		Register(DefaultImpl, func(Descriptor) (*Target, error) {
			return New(), nil
		})
	})
}

func TestRegister_CustomVariant(t *testing.T) {
	Register("custom-variant", func(d Descriptor) (*Target, error) {
		return New(WithIDField("Uuid")), nil
	})

	tgt, err := FromDescriptor(Descriptor{Impl: "custom-variant"})
	if err != nil {
		t.Fatal(err)
	}
	if tgt.IDFieldName() != "Uuid" {
		t.Errorf("IDFieldName() = %q, want Uuid", tgt.IDFieldName())
	}
	if tgt.Descriptor().Impl != "custom-variant" {
		t.Errorf("Impl = %q, want custom-variant", tgt.Descriptor().Impl)
	}
}
