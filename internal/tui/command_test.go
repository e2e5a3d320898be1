package tui

import "testing"

func TestParseCommand(t *testing.T) {
	tests := []struct {
		in      string
		want    Command
		wantErr bool
	}{
		{"q", Command{Name: "quit"}, false},
		{" Open  64f0c1 ", Command{Name: "open", Args: "64f0c1"}, false},
		{":chat dr ada", Command{Name: "chat", Args: "dr ada"}, false},
		{"retry", Command{Name: "reload"}, false},
		{"login", Command{Name: "login"}, false},
		{"open", Command{}, true},
		{"", Command{}, true},
		{"search x", Command{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseCommand(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}
