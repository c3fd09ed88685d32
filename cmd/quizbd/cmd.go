package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/shopspring/decimal"
	"golang.org/x/term"

	"github.com/quizbd/quizbd-go/internal/domain"
	"github.com/quizbd/quizbd-go/internal/student"
	"github.com/quizbd/quizbd-go/internal/teacher"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp = errors.New("help provided")
)

type commandLine struct {
	app *app
}

func (cli *commandLine) printUsage() {
	fmt.Println("Usage:")
	fmt.Println("  login [-teacher]                        - log in as student or teacher")
	fmt.Println("  register -name NAME -class 6..10        - create a student account")
	fmt.Println("  logout                                  - clear the local session")
	fmt.Println("  whoami                                  - show the logged-in identity")
	fmt.Println("  profile -phone PHONE -avatar FILE       - complete onboarding (teacher: -name -subject)")
	fmt.Println("  avatar -file FILE                       - replace the profile image")
	fmt.Println("  progress                                - per-subject progress and overall score")
	fmt.Println("  dashboard [-class N] [-tab free|paid] [-subject S]")
	fmt.Println("  take -quiz ID [-trial]                  - attempt a quiz interactively")
	fmt.Println("  results                                 - list graded attempts")
	fmt.Println("  explain -quiz ID [-trial]               - review wrong answers")
	fmt.Println("  buy -class N -subject S                 - unlock a paid subject")
	fmt.Println("  quizzes | save | import | publish | delete | prices | setprice | analytics")
	fmt.Println("                                          - teacher content management")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch args[1] {
	case "login":
		return cli.login(ctx, args[2:])
	case "register":
		return cli.register(ctx, args[2:])
	case "logout":
		cli.app.student.Logout()
		fmt.Println("Logged out.")
		return nil
	case "whoami":
		return cli.whoami()
	case "profile":
		return cli.completeProfile(ctx, args[2:])
	case "avatar":
		return cli.updateAvatar(ctx, args[2:])
	case "progress":
		return cli.progress(ctx)
	case "dashboard":
		return cli.dashboard(ctx, args[2:])
	case "take":
		return cli.take(ctx, args[2:])
	case "results":
		return cli.results(ctx)
	case "explain":
		return cli.explain(ctx, args[2:])
	case "buy":
		return cli.buy(ctx, args[2:])
	case "quizzes":
		return cli.teacherQuizzes(ctx)
	case "save":
		return cli.saveQuiz(ctx, args[2:])
	case "import":
		return cli.importQuiz(ctx, args[2:])
	case "publish":
		return cli.publishQuiz(ctx, args[2:])
	case "delete":
		return cli.deleteQuiz(ctx, args[2:])
	case "prices":
		return cli.prices(ctx)
	case "setprice":
		return cli.setPrice(ctx, args[2:])
	case "analytics":
		return cli.analytics(ctx)
	default:
		cli.printUsage()
		return errHelp
	}
}

func (cli *commandLine) login(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("login", flag.ExitOnError)
	asTeacher := fs.Bool("teacher", false, "log in with a teacher account")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *asTeacher {
		email := prompt("Email: ")
		pwd, err := promptPassword()
		if err != nil {
			return err
		}

		u, err := cli.app.teacher.Login(ctx, teacher.LoginInput{Email: email, Password: pwd})
		if err != nil {
			return err
		}

		fmt.Printf("Logged in as teacher %s.\n", u.Name)
		if !u.ProfileCompleted {
			fmt.Println("Complete your teacher profile to continue.")
		}
		return nil
	}

	name := prompt("Student name: ")
	pwd, err := promptPassword()
	if err != nil {
		return err
	}

	u, err := cli.app.student.Login(ctx, student.LoginInput{Name: name, Password: pwd})
	if err != nil {
		return err
	}

	fmt.Printf("Logged in as %s (class %d).\n", u.Name, u.ClassLevel)
	if !u.ProfileCompleted {
		fmt.Println("Run `quizbd profile` to finish onboarding.")
	}
	return nil
}

func (cli *commandLine) register(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("register", flag.ExitOnError)
	name := fs.String("name", "", "student name")
	class := fs.Int("class", 0, "class level (6-10)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *name == "" || *class == 0 {
		fs.Usage()
		return errHelp
	}

	pwd, err := promptPassword()
	if err != nil {
		return err
	}

	u, err := cli.app.student.Register(ctx, student.RegisterInput{
		Name:       strings.TrimSpace(*name),
		ClassLevel: *class,
		Password:   pwd,
	})
	if err != nil {
		return err
	}

	fmt.Printf("Welcome %s! Run `quizbd profile` to finish onboarding.\n", u.Name)
	return nil
}

func (cli *commandLine) whoami() error {
	u, ok := cli.app.session.User()
	if !ok {
		fmt.Println("Not logged in.")
		return nil
	}

	fmt.Printf("%s (%s)", u.Name, u.Role)
	if u.Role == domain.RoleStudent {
		fmt.Printf(", class %d", u.ClassLevel)
	}
	if !u.ProfileCompleted {
		fmt.Print(", profile incomplete")
	}
	fmt.Println()
	return nil
}

func (cli *commandLine) completeProfile(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("profile", flag.ExitOnError)
	phone := fs.String("phone", "", "phone number")
	avatar := fs.String("avatar", "", "path to a profile image (student)")
	name := fs.String("name", "", "display name (teacher)")
	subject := fs.String("subject", "", "taught subject (teacher)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if cli.app.session.Role() == domain.RoleTeacher {
		if *name == "" {
			fs.Usage()
			return errHelp
		}

		if err := cli.app.teacher.CompleteProfile(ctx, teacher.ProfileInput{
			Name:    *name,
			Subject: *subject,
			Phone:   strings.TrimSpace(*phone),
		}); err != nil {
			return err
		}

		fmt.Println("Teacher profile created successfully.")
		return nil
	}

	if *phone == "" || *avatar == "" {
		fs.Usage()
		return errHelp
	}

	f, err := os.Open(*avatar)
	if err != nil {
		return fmt.Errorf("open avatar: %w", err)
	}
	defer f.Close()

	if err := cli.app.student.CompleteProfile(ctx, student.CompleteProfileInput{
		Phone:      strings.TrimSpace(*phone),
		AvatarName: *avatar,
		Avatar:     f,
	}); err != nil {
		return err
	}

	fmt.Println("Profile created successfully.")
	return nil
}

func (cli *commandLine) updateAvatar(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("avatar", flag.ExitOnError)
	file := fs.String("file", "", "path to the new profile image")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *file == "" {
		fs.Usage()
		return errHelp
	}

	f, err := os.Open(*file)
	if err != nil {
		return fmt.Errorf("open avatar: %w", err)
	}
	defer f.Close()

	if err := cli.app.student.UpdateAvatar(ctx, *file, f); err != nil {
		return err
	}

	fmt.Println("Avatar updated.")
	return nil
}

func (cli *commandLine) progress(ctx context.Context) error {
	if err := cli.app.student.Guard(domain.RoleStudent); err != nil {
		return err
	}

	view, err := cli.app.student.Profile(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("Overall: %d%% across %d attempts\n", view.OverallPercent, len(view.Results))
	for _, p := range view.Progress {
		fmt.Printf("  %-20s %.0f%%\n", p.Subject, p.Percent)
	}
	return nil
}

func (cli *commandLine) dashboard(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("dashboard", flag.ExitOnError)
	class := fs.Int("class", 0, "class level (6-10)")
	tab := fs.String("tab", "", "free or paid")
	subject := fs.String("subject", "", "paid subject to open")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if err := cli.app.student.Guard(domain.RoleStudent); err != nil {
		return err
	}

	// Fall back to the last selection, like the web dashboard does.
	if *class == 0 {
		saved, ok := cli.app.student.ActiveClass()
		if !ok {
			fmt.Println("Please select a class with -class to continue.")
			return nil
		}
		*class = saved
	}
	cli.app.student.SetActiveClass(*class)

	if *tab == "" {
		*tab = cli.app.student.ActiveTab()
	}
	cli.app.student.SetActiveTab(*tab)

	if *tab != "paid" {
		models, err := cli.app.student.FreeModels(ctx, *class)
		if err != nil {
			return err
		}

		fmt.Printf("Free MCQ, class %d:\n", *class)
		for _, m := range models {
			fmt.Printf("  %s  %s (%d questions)\n", m.ID, m.Title, len(m.Questions))
		}
		return nil
	}

	if *subject == "" {
		view, err := cli.app.student.PaidSubjects(ctx, *class)
		if err != nil {
			return err
		}

		fmt.Printf("Paid subjects, class %d:\n", *class)
		for _, s := range view.Subjects {
			mark := "locked"
			if view.Purchased[s] {
				mark = "unlocked"
			}
			fmt.Printf("  %s (%s)\n", s, mark)
		}
		return nil
	}

	view, err := cli.app.student.PaidModels(ctx, *class, *subject)
	if err != nil {
		return err
	}

	fmt.Printf("%s, class %d (unlocked: %v):\n", *subject, *class, view.Unlocked)
	for _, m := range view.Models {
		line := fmt.Sprintf("  %s  %s", m.ID, m.Title)
		if r, ok := view.Completed[m.ID]; ok {
			line += fmt.Sprintf("  [done %d/%d]", r.Score, r.TotalQuestions)
		}
		fmt.Println(line)
	}
	return nil
}

func (cli *commandLine) results(ctx context.Context) error {
	if err := cli.app.student.Guard(domain.RoleStudent); err != nil {
		return err
	}

	rs, err := cli.app.student.Results(ctx)
	if err != nil {
		return err
	}

	for _, r := range rs {
		trial := ""
		if r.IsTrial {
			trial = " (trial)"
		}
		fmt.Printf("%s  %s  %d/%d%s\n", r.Quiz.ID, r.Quiz.Title, r.Score, r.TotalQuestions, trial)
	}
	return nil
}

func (cli *commandLine) explain(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("explain", flag.ExitOnError)
	quizID := fs.String("quiz", "", "quiz ID")
	trial := fs.Bool("trial", false, "trial attempt")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *quizID == "" {
		fs.Usage()
		return errHelp
	}

	ws, err := cli.app.student.WrongAnswers(ctx, *quizID, *trial)
	if err != nil {
		return err
	}

	if len(ws) == 0 {
		fmt.Println("No wrong answers. Well done!")
		return nil
	}

	for i, w := range ws {
		fmt.Printf("Q%d. %s\n", i+1, w.Question)
		for j, opt := range w.Options {
			mark := " "
			switch {
			case j == w.CorrectAnswer:
				mark = "+"
			case j == w.SelectedOption:
				mark = "x"
			}
			fmt.Printf("  [%s] %s\n", mark, opt)
		}
		if w.Explanation != "" {
			fmt.Printf("  Explanation: %s\n", w.Explanation)
		}
	}
	return nil
}

func (cli *commandLine) buy(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("buy", flag.ExitOnError)
	class := fs.Int("class", 0, "class level")
	subject := fs.String("subject", "", "subject to unlock")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *class == 0 || *subject == "" {
		fs.Usage()
		return errHelp
	}

	if err := cli.app.student.Guard(domain.RoleStudent); err != nil {
		return err
	}

	co, err := cli.app.payment.Begin(ctx, *class, *subject)
	if err != nil {
		return err
	}

	fmt.Printf("Unlock %s (class %d) for %s BDT.\n", co.Subject, co.ClassLevel, co.Price)
	fmt.Printf("Open this URL to pay:\n  %s\n", co.GatewayURL)
	fmt.Println("Waiting for the payment gateway...")

	ok, err := co.Await(ctx)
	if err != nil {
		return err
	}

	if ok {
		fmt.Println("Payment successful, subject unlocked.")
	} else {
		fmt.Println("Payment failed or cancelled.")
	}
	return nil
}

func (cli *commandLine) teacherQuizzes(ctx context.Context) error {
	qs, err := cli.app.teacher.Quizzes(ctx)
	if err != nil {
		return err
	}

	for _, q := range qs {
		state := "published"
		if !q.IsPublished {
			state = "draft"
		}
		fmt.Printf("%s  %s  class %d, %s, %d questions (%s)\n",
			q.ID, q.Title, q.ClassLevel, q.Subject, len(q.Questions), state)
	}
	return nil
}

func (cli *commandLine) saveQuiz(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("save", flag.ExitOnError)
	file := fs.String("file", "", "quiz definition JSON file")
	id := fs.String("id", "", "quiz ID to update; empty creates")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *file == "" {
		fs.Usage()
		return errHelp
	}

	in, err := readQuizInput(*file)
	if err != nil {
		return err
	}

	q, err := cli.app.teacher.Save(ctx, *id, *in)
	if err != nil {
		return err
	}

	fmt.Printf("Saved quiz %s.\n", q.ID)
	return nil
}

func (cli *commandLine) importQuiz(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("import", flag.ExitOnError)
	file := fs.String("file", "", "quiz JSON file")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *file == "" {
		fs.Usage()
		return errHelp
	}

	f, err := os.Open(*file)
	if err != nil {
		return fmt.Errorf("open quiz file: %w", err)
	}
	defer f.Close()

	q, err := cli.app.teacher.ImportJSON(ctx, f)
	if err != nil {
		return err
	}

	fmt.Printf("Imported quiz %s.\n", q.ID)
	return nil
}

func (cli *commandLine) publishQuiz(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("publish", flag.ExitOnError)
	id := fs.String("id", "", "quiz ID")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *id == "" {
		fs.Usage()
		return errHelp
	}

	published, err := cli.app.teacher.TogglePublish(ctx, *id)
	if err != nil {
		return err
	}

	if published {
		fmt.Println("Published.")
	} else {
		fmt.Println("Moved to draft.")
	}
	return nil
}

func (cli *commandLine) deleteQuiz(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("delete", flag.ExitOnError)
	id := fs.String("id", "", "quiz ID")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *id == "" {
		fs.Usage()
		return errHelp
	}

	if err := cli.app.teacher.Delete(ctx, *id); err != nil {
		return err
	}

	fmt.Println("Quiz deleted.")
	return nil
}

func (cli *commandLine) prices(ctx context.Context) error {
	ps, err := cli.app.teacher.Prices(ctx)
	if err != nil {
		return err
	}

	for _, p := range ps {
		fmt.Printf("class %d  %-20s %s BDT\n", p.ClassLevel, p.Subject, p.Amount)
	}
	return nil
}

func (cli *commandLine) setPrice(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("setprice", flag.ExitOnError)
	class := fs.Int("class", 0, "class level")
	subject := fs.String("subject", "", "subject")
	amount := fs.String("amount", "", "price in BDT")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *class == 0 || *subject == "" || *amount == "" {
		fs.Usage()
		return errHelp
	}

	d, err := decimal.NewFromString(*amount)
	if err != nil {
		return fmt.Errorf("invalid amount %q: %w", *amount, err)
	}

	if err := cli.app.teacher.SetPrice(ctx, teacher.PriceInput{
		ClassLevel: *class,
		Subject:    *subject,
		Amount:     d,
	}); err != nil {
		return err
	}

	fmt.Println("Price saved.")
	return nil
}

func (cli *commandLine) analytics(ctx context.Context) error {
	a, err := cli.app.teacher.Analytics(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("Quizzes: %d\nStudents: %d\nAttempts: %d\n", a.TotalQuizzes, a.TotalStudents, a.TotalAttempts)
	return nil
}

func readQuizInput(path string) (*teacher.QuizInput, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open quiz file: %w", err)
	}
	defer f.Close()

	var in teacher.QuizInput
	if err := json.NewDecoder(f).Decode(&in); err != nil {
		return nil, fmt.Errorf("parse quiz file: %w", err)
	}

	return &in, nil
}

func prompt(label string) string {
	fmt.Print(label)
	var s string
	fmt.Scanln(&s)
	return strings.TrimSpace(s)
}

func promptPassword() (string, error) {
	fmt.Print("Password: ")
	pwd, err := readPasswordFunc(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		return "", err
	}
	if len(pwd) == 0 {
		return "", errors.New("empty password")
	}

	return string(pwd), nil
}
