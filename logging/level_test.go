package logging

import (
	"encoding/json"
	"testing"

	"go.viam.com/test"
)

func TestLevelStrings(t *testing.T) {
	for _, level := range []Level{DEBUG, INFO, WARN, ERROR} {
		serialized := level.String()
		parsed, err := LevelFromString(serialized)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, parsed, test.ShouldEqual, level)
	}

	parsed, err := LevelFromString("warning")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, parsed, test.ShouldEqual, WARN)

	_, err = LevelFromString("not a level")
	test.That(t, err, test.ShouldNotBeNil)
}

func TestLevelJSONRoundTrip(t *testing.T) {
	type levels struct {
		Debug, Info, Warn, Error Level
	}
	want := levels{DEBUG, INFO, WARN, ERROR}
	encoded, err := json.Marshal(want)
	test.That(t, err, test.ShouldBeNil)

	var got levels
	err = json.Unmarshal(encoded, &got)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, got, test.ShouldResemble, want)
}

func TestLevelJSONErrors(t *testing.T) {
	var level Level
	test.That(t, json.Unmarshal([]byte(`{}`), &level), test.ShouldNotBeNil)
	test.That(t, json.Unmarshal([]byte(`"not a level"`), &level), test.ShouldNotBeNil)
}
