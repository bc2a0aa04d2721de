package main

import (
	"bufio"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/sw965/omw/mathx/randx"
	"github.com/sw965/sushigo"
	"github.com/sw965/sushigo/game"
	"github.com/sw965/sushigo/selfplay"
)

func main() {
	checkpoint := flag.String("checkpoint", "", "学習済みモデルのディレクトリ（空ならランダムな相手）")
	players := flag.Int("players", 2, "プレイヤー数 (2-5)")
	hidden := flag.Int("hidden", 128, "隠れ層のユニット数（チェックポイントと一致させる）")
	flag.Parse()

	rngs, err := randx.NewPCGs(1)
	if err != nil {
		log.Fatalf("乱数生成器の初期化に失敗しました: %v", err)
	}
	rng := rngs[0]

	var ac game.ActorCritic[sushigo.State, sushigo.Card, sushigo.Agent]
	if *checkpoint == "" {
		log.Println("チェックポイントが指定されていないので、ランダムな相手と対戦します。")
		ac = game.NewRandomActorCritic[sushigo.State, sushigo.Card, sushigo.Agent]()
	} else {
		models, err := selfplay.NewModels(*players, *hidden, rng)
		if err != nil {
			log.Fatalf("モデルの構築に失敗しました: %v", err)
		}
		if err := models.LoadParameters(*checkpoint); err != nil {
			log.Fatalf("チェックポイントの読み込みに失敗しました: %v", err)
		}
		ac = models.NewGreedyActorCritic("agent")
	}

	state, err := sushigo.NewInitState(*players, rng)
	if err != nil {
		log.Fatalf("ゲームの初期化に失敗しました: %v", err)
	}

	const humanSeat = sushigo.Agent(0)
	scanner := bufio.NewScanner(os.Stdin)

	for !state.IsEnd() {
		fmt.Print(state)

		move, err := readHumanMove(scanner, state, humanSeat)
		if err != nil {
			log.Fatalf("入力の読み込みに失敗しました: %v", err)
		}

		legalByAgent := sushigo.LegalMovesByAgentFunc(state)
		jp, _, err := ac.PolicyValueFunc(state, legalByAgent)
		if err != nil {
			log.Fatalf("エージェントの手の計算に失敗しました: %v", err)
		}

		jointMove := map[sushigo.Agent]sushigo.Card{humanSeat: move}
		for _, agent := range legalAgents(state) {
			if agent == humanSeat {
				continue
			}
			agentMove, err := ac.SelectFunc(jp[agent], agent, rng)
			if err != nil {
				log.Fatalf("エージェントの手の選択に失敗しました: %v", err)
			}
			jointMove[agent] = agentMove
		}

		state, err = sushigo.MoveFunc(state, jointMove)
		if err != nil {
			log.Fatalf("手の適用に失敗しました: %v", err)
		}
	}

	printResult(state)
}

func legalAgents(state sushigo.State) []sushigo.Agent {
	agents := make([]sushigo.Agent, state.NumPlayers())
	for i := range agents {
		agents[i] = sushigo.Agent(i)
	}
	return agents
}

// readHumanMove shows the hand with indices and reads a pick from
// stdin, re-prompting until the input is a valid index.
func readHumanMove(scanner *bufio.Scanner, state sushigo.State, seat sushigo.Agent) (sushigo.Card, error) {
	hand := state.Hands[seat]

	fmt.Println("your hand:")
	for i, c := range hand {
		fmt.Printf("  [%d] %v\n", i, c)
	}

	for {
		fmt.Print("pick a card index: ")
		if !scanner.Scan() {
			if err := scanner.Err(); err != nil {
				return sushigo.None, err
			}
			return sushigo.None, fmt.Errorf("stdin closed")
		}

		idx, err := strconv.Atoi(scanner.Text())
		if err != nil || idx < 0 || idx >= len(hand) {
			fmt.Printf("0から%dの番号を入力してください。\n", len(hand)-1)
			continue
		}
		return hand[idx], nil
	}
}

func printResult(state sushigo.State) {
	fmt.Print(state)

	scores := state.Scores()
	ranks, err := sushigo.RankByAgentFunc(state)
	if err != nil {
		log.Fatalf("順位の計算に失敗しました: %v", err)
	}

	for i := range state.Tableaus {
		breakdown, err := sushigo.NewBreakdown(state.Tableaus, i)
		if err != nil {
			log.Fatalf("得点内訳の計算に失敗しました: %v", err)
		}
		fmt.Printf("player %d: %d points (rank %d)\n", i, scores[i], ranks[sushigo.Agent(i)])
		fmt.Print(sushigo.RenderBreakdown(breakdown))
	}

	winners := make([]int, 0, len(ranks))
	for agent, rank := range ranks {
		if rank == 1 {
			winners = append(winners, int(agent))
		}
	}
	if len(winners) == 1 {
		fmt.Printf("winner: player %d\n", winners[0])
	} else {
		fmt.Printf("draw between players %v\n", winners)
	}
}
