package embedding

import "testing"

func TestHashTokenizer_Encode(t *testing.T) {
	tok := NewHashTokenizer()
	tests := []struct {
		name       string
		text       string
		seqLen     int
		wantLength int
	}{
		{name: "two words", text: "Hello, world", seqLen: 10, wantLength: 4},
		{name: "empty text", text: "", seqLen: 6, wantLength: 2},
		{name: "truncated", text: "a b c d e f g h", seqLen: 4, wantLength: 4},
		{name: "hyphenated words split", text: "sick-leave policy", seqLen: 10, wantLength: 5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			enc := tok.Encode(tt.text, tt.seqLen)
			if len(enc.InputIDs) != tt.seqLen || len(enc.AttentionMask) != tt.seqLen || len(enc.TokenTypeIDs) != tt.seqLen {
				t.Fatalf("lengths %d %d %d, want %d", len(enc.InputIDs), len(enc.AttentionMask), len(enc.TokenTypeIDs), tt.seqLen)
			}
			if enc.Length != tt.wantLength {
				t.Fatalf("Length = %d, want %d (ids %v)", enc.Length, tt.wantLength, enc.InputIDs)
			}
			if enc.InputIDs[0] != clsID || enc.InputIDs[enc.Length-1] != sepID {
				t.Errorf("ids = %v, want [CLS] ... [SEP]", enc.InputIDs)
			}
			for i := range enc.InputIDs {
				inSeq := i < enc.Length
				if (enc.AttentionMask[i] == 1) != inSeq {
					t.Errorf("attention[%d] = %d", i, enc.AttentionMask[i])
				}
				if !inSeq && enc.InputIDs[i] != padID {
					t.Errorf("padding id at %d = %d", i, enc.InputIDs[i])
				}
			}
		})
	}
}

func TestHashTokenizer_CaseInsensitive(t *testing.T) {
	tok := NewHashTokenizer()
	upper := tok.Encode("Vacation Policy", 8)
	lower := tok.Encode("vacation policy", 8)
	for i := range upper.InputIDs {
		if upper.InputIDs[i] != lower.InputIDs[i] {
			t.Fatalf("ids differ at %d: %v vs %v", i, upper.InputIDs, lower.InputIDs)
		}
	}
	if id := upper.InputIDs[1]; id < firstWordID || id >= vocabSize {
		t.Errorf("word id %d outside vocabulary range", id)
	}
}
