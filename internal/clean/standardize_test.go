package clean

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sells-group/clinic-pipeline/internal/model"
)

func TestFormatPhone(t *testing.T) {
	assert.Equal(t, "(312) 926-2000", FormatPhone("312.926.2000"))
	assert.Equal(t, "(312) 926-2000", FormatPhone("+1 (312) 926 2000"))
	assert.Equal(t, "926-2000", FormatPhone(" 926-2000 "))
}

func TestFormatZip(t *testing.T) {
	assert.Equal(t, "60611", FormatZip("60611-2908"))
	assert.Equal(t, "60611", FormatZip(" 60611 "))
	assert.Equal(t, "60611", FormatZip("60611 2908"))
	assert.Equal(t, "60611", FormatZip("606112908"))
	assert.Equal(t, "IL 606", FormatZip("IL 606"))
}

func TestFormatName(t *testing.T) {
	assert.Equal(t, "Northwestern Memorial Hospital", FormatName("NORTHWESTERN MEMORIAL HOSPITAL"))
	assert.Equal(t, "Clinic A Urgent Care", FormatName("Clinic  A Urgent Care"))
	assert.Equal(t, "UCHICAGO Medicine", FormatName("UCHICAGO Medicine"))
	assert.Equal(t, "A", FormatName("A"))
}

func TestStandardize(t *testing.T) {
	c := &model.Clinic{
		Name:    "LAKEVIEW PEDIATRICS",
		Phone:   "773-555-0199",
		ZipCode: "60657-1234",
		Address: " 1000  W Belmont Ave ",
		State:   "il",
		City:    " Chicago",
	}

	changed := Standardize(c)

	assert.Equal(t, "Lakeview Pediatrics", c.Name)
	assert.Equal(t, "(773) 555-0199", c.Phone)
	assert.Equal(t, "60657", c.ZipCode)
	assert.Equal(t, "1000 W Belmont Ave", c.Address)
	assert.Equal(t, "IL", c.State)
	assert.Equal(t, "Chicago", c.City)
	assert.ElementsMatch(t, []string{"name", "phone", "zip_code", "address", "city", "state"}, changed)

	assert.Empty(t, Standardize(c))
}

func TestStandardize_LeavesPlaceholders(t *testing.T) {
	c := &model.Clinic{Name: "Clinic", Phone: "N/A", ZipCode: "unknown"}

	assert.Empty(t, Standardize(c))
	assert.Equal(t, "N/A", c.Phone)
	assert.Equal(t, "unknown", c.ZipCode)
}
