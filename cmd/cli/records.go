package main

import (
	"github.com/spf13/cobra"

	"github.com/bigredeye/gradebook/api"
)

func makeRecordsCommand() *cobra.Command {
	filter := api.StudentsRequest{}

	cmd := &cobra.Command{
		Use:   "records",
		Short: "Dump score records matching the filter",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newClient()
			if err != nil {
				return err
			}
			scores, err := client.LoadRecords(&filter)
			if err != nil {
				return err
			}
			return dump(scores)
		},
	}

	cmd.Flags().StringVar(&filter.StudentID, "student", "", "Student ID")
	cmd.Flags().StringVar(&filter.Class, "class", "", "Class name")
	cmd.Flags().StringVar(&filter.ExamName, "exam", "", "Exam name")

	return cmd
}

func makeAnalyzeCommand() *cobra.Command {
	req := api.AnalyzeRequest{}

	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Average, highest and lowest score of a class",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newClient()
			if err != nil {
				return err
			}
			report, err := client.Analyze(&req)
			if err != nil {
				return err
			}
			return dump(report)
		},
	}

	cmd.Flags().StringVar(&req.Class, "class", "", "Class name")
	cmd.Flags().StringVar(&req.ExamName, "exam", "", "Exam name")
	cmd.Flags().StringVar(&req.Subject, "subject", "", "Subject")
	check(cmd.MarkFlagRequired("class"))
	check(cmd.MarkFlagRequired("exam"))
	check(cmd.MarkFlagRequired("subject"))

	return cmd
}

func makeClassAnalysisCommand() *cobra.Command {
	req := api.ClassAnalysisRequest{}

	cmd := &cobra.Command{
		Use:   "class-analysis",
		Short: "Rank classes by average score",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newClient()
			if err != nil {
				return err
			}
			reports, err := client.ClassAnalysis(&req)
			if err != nil {
				return err
			}
			return dump(reports)
		},
	}

	cmd.Flags().StringVar(&req.ExamName, "exam", "", "Exam name")
	cmd.Flags().StringVar(&req.Subject, "subject", "", "Subject")
	check(cmd.MarkFlagRequired("exam"))
	check(cmd.MarkFlagRequired("subject"))

	return cmd
}

func makeSchoolAnalysisCommand() *cobra.Command {
	req := api.SchoolAnalysisRequest{}

	cmd := &cobra.Command{
		Use:   "school-analysis",
		Short: "School-wide results of an exam subject",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newClient()
			if err != nil {
				return err
			}
			report, err := client.SchoolAnalysis(&req)
			if err != nil {
				return err
			}
			return dump(report)
		},
	}

	cmd.Flags().StringVar(&req.ExamName, "exam", "", "Exam name")
	cmd.Flags().StringVar(&req.Subject, "subject", "", "Subject")
	check(cmd.MarkFlagRequired("exam"))
	check(cmd.MarkFlagRequired("subject"))

	return cmd
}

func makeStatsCommand() *cobra.Command {
	req := api.PerformanceStatisticsRequest{}

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Pass/fail statistics of a subject across all exams",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newClient()
			if err != nil {
				return err
			}
			report, err := client.PerformanceStatistics(&req)
			if err != nil {
				return err
			}
			return dump(report)
		},
	}

	cmd.Flags().StringVar(&req.Subject, "subject", "", "Subject")
	check(cmd.MarkFlagRequired("subject"))

	return cmd
}
