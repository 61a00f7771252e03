package producer

import "testing"

func TestGeneratorDeterministicUnderSeed(t *testing.T) {
	a := NewGenerator(42, "p1", 50)
	b := NewGenerator(42, "p1", 50)

	for i := 0; i < 10; i++ {
		ra := a.NextRecord()
		rb := b.NextRecord()
		if ra["event_id"] != rb["event_id"] || ra["user_id"] != rb["user_id"] || ra["event_type"] != rb["event_type"] {
			t.Fatalf("records diverged at %d: %v vs %v", i, ra, rb)
		}
	}
}

func TestGeneratorRecordShape(t *testing.T) {
	g := NewGenerator(7, "p1", 10)
	record := g.NextRecord()

	for _, key := range []string{"event_id", "user_id", "session_id", "event_type", "amount", "currency", "country", "device", "source", "occurred_at"} {
		if _, ok := record[key]; !ok {
			t.Fatalf("record missing %q: %v", key, record)
		}
	}
	if record["source"] != "thriftdb-demo-producer" {
		t.Fatalf("source = %v", record["source"])
	}
}

func TestGeneratorAmountsMatchEventType(t *testing.T) {
	g := NewGenerator(3, "p1", 10)
	for i := 0; i < 200; i++ {
		record := g.NextRecord()
		amount := record["amount"].(float64)
		switch record["event_type"] {
		case "page_view", "search":
			if amount != 0 {
				t.Fatalf("%v has amount %v", record["event_type"], amount)
			}
		default:
			if amount <= 0 {
				t.Fatalf("%v has amount %v", record["event_type"], amount)
			}
		}
	}
}
