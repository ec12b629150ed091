// Package console plays a game against the engine over a text stream.
// Rows and columns are shown and read 1-indexed.
package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/jaminalder/tictactoe-engine/internal/app"
	"github.com/jaminalder/tictactoe-engine/internal/domain"
	"github.com/jaminalder/tictactoe-engine/internal/engine"
	"github.com/muesli/termenv"
	"github.com/rs/zerolog"
)

const illegalMove = "Illegal move! Please choose again!"

type Console struct {
	in  *bufio.Scanner
	out *termenv.Output
	log zerolog.Logger
}

// New reads moves from in and writes to out. Colors are used only when
// out is a terminal that supports them, unless opts force a profile.
func New(in io.Reader, out io.Writer, opts ...termenv.OutputOption) *Console {
	sc := bufio.NewScanner(in)
	sc.Split(bufio.ScanWords)
	return &Console{in: sc, out: termenv.NewOutput(out, opts...), log: zerolog.Nop()}
}

func (c *Console) SetLogger(l zerolog.Logger) { c.log = l }

func (c *Console) mark(p domain.Cell) string {
	switch p {
	case domain.X:
		return c.out.String("x").Foreground(c.out.Color("1")).Bold().String()
	case domain.O:
		return c.out.String("o").Foreground(c.out.Color("4")).Bold().String()
	}
	return "_"
}

// Render prints b with a 1-indexed header row and column.
func (c *Console) Render(b domain.Board) {
	fmt.Fprintln(c.out, "   1 2 3")
	fmt.Fprintln(c.out, "  ______")
	for r := 0; r < 3; r++ {
		fmt.Fprintf(c.out, "%d |%s %s %s \n", r+1, c.mark(b.At(r, 0)), c.mark(b.At(r, 1)), c.mark(b.At(r, 2)))
	}
}

func (c *Console) readInt() (int, error) {
	if !c.in.Scan() {
		if err := c.in.Err(); err != nil {
			return 0, err
		}
		return 0, io.EOF
	}
	return strconv.Atoi(c.in.Text())
}

// ReadMove prompts side for a row and a column until they name an empty
// cell, and returns the 0-indexed move.
func (c *Console) ReadMove(b *domain.Board, side domain.Cell) (domain.Move, error) {
	for {
		fmt.Fprintf(c.out, "Your turn (%s). Choose row and column: \n", strings.ToLower(side.String()))
		// both tokens are consumed so a bad line is rejected as a whole
		r, err := c.readInt()
		if errors.Is(err, io.EOF) {
			return domain.Move{}, io.EOF
		}
		col, colErr := c.readInt()
		if errors.Is(colErr, io.EOF) {
			return domain.Move{}, io.EOF
		}
		if err == nil {
			err = colErr
		}
		if err == nil {
			err = b.Legal(r-1, col-1)
		}
		if err != nil {
			c.log.Debug().Err(err).Msg("rejected-input")
			fmt.Fprintln(c.out, illegalMove)
			continue
		}
		return domain.Move{Row: r - 1, Col: col - 1}, nil
	}
}

// Play runs one game against the engine and returns how it ended.
func (c *Console) Play(ctx context.Context, st app.Settings) (domain.Game, error) {
	sess, err := engine.NewSession(st.Engine, engine.WithLogger(c.log))
	if err != nil {
		return domain.Game{}, err
	}
	if st.Computer != domain.X && st.Computer != domain.O {
		return domain.Game{}, app.ErrInvalidSettings
	}
	g := domain.NewWithFirst(st.First)
	for !g.Over {
		if err := ctx.Err(); err != nil {
			return g, err
		}
		fmt.Fprint(c.out, "\n\n")
		c.Render(g.Board)

		var m domain.Move
		if g.Turn == st.Computer {
			fmt.Fprintf(c.out, "Computer's turn (%s).\n", strings.ToLower(g.Turn.String()))
			if m, err = sess.ChooseMove(&g.Board, g.Turn); err != nil {
				return g, err
			}
			fmt.Fprintf(c.out, "Computer plays %d %d\n", m.Row+1, m.Col+1)
		} else if m, err = c.ReadMove(&g.Board, g.Turn); err != nil {
			return g, err
		}
		if err := g.Play(m.Row, m.Col); err != nil {
			return g, err
		}
	}
	fmt.Fprint(c.out, "\n\n")
	c.Render(g.Board)
	fmt.Fprintf(c.out, "%s \n", app.ResultMessage(g.Winner, st.Computer))
	return g, nil
}
